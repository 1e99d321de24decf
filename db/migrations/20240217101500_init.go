package migrations

import (
	"context"

	"github.com/quantdesk/usdthub/db/models"
	"github.com/uptrace/bun"
)

/* Since this init will reflect the latest model fields when run on a fresh db
make sure that when you add/remove columns in subsequent migrations
IfNotExists/IfExists is used, otherwise it's going to result in errors. */
func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		if _, err := db.NewCreateTable().Model((*models.User)(nil)).Exec(ctx); err != nil {
			return err
		}
		if _, err := db.NewCreateTable().Model((*models.Order)(nil)).Exec(ctx); err != nil {
			return err
		}
		if _, err := db.NewCreateTable().Model((*models.CreditEntry)(nil)).Exec(ctx); err != nil {
			return err
		}
		if _, err := db.NewCreateTable().Model((*models.TransferAnomaly)(nil)).Exec(ctx); err != nil {
			return err
		}

		// Durable allocation sequence for derivation indices. A database
		// sequence keeps address allocation collision-free across multiple
		// service instances.
		if _, err := db.ExecContext(ctx, "CREATE SEQUENCE IF NOT EXISTS order_derivation_index_seq START WITH 0 MINVALUE 0"); err != nil {
			return err
		}

		// The expiry sweeper scans on (status, expires_at).
		if _, err := db.NewCreateIndex().
			Model((*models.Order)(nil)).
			Index("orders_status_expires_at_idx").
			Column("status", "expires_at").
			Exec(ctx); err != nil {
			return err
		}
		if _, err := db.NewCreateIndex().
			Model((*models.Order)(nil)).
			Index("orders_user_id_idx").
			Column("user_id").
			Exec(ctx); err != nil {
			return err
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		if _, err := db.ExecContext(ctx, "DROP SEQUENCE IF EXISTS order_derivation_index_seq"); err != nil {
			return err
		}
		for _, model := range []interface{}{
			(*models.TransferAnomaly)(nil),
			(*models.CreditEntry)(nil),
			(*models.Order)(nil),
			(*models.User)(nil),
		} {
			if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}
