package postgresadapter

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Migrate creates or extends the earnings tables. It never drops columns.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(
		&campaignModel{},
		&clipModel{},
		&submissionModel{},
		&viewSampleModel{},
		&stateHistoryModel{},
		&userTotalsModel{},
		&payoutRequestModel{},
		&outboxModel{},
	); err != nil {
		return fmt.Errorf("migrate earnings tables: %w", err)
	}
	return nil
}
