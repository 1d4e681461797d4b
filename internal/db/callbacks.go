/*
Copyright (C) 2026 SoundShare Authors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"time"

	"github.com/soundshare/soundshare/internal/telemetry"
	"gorm.io/gorm"
)

const startTimeKey = "catalog:start_time"

// RegisterCallbacks hooks query duration and error metrics into every
// catalog CRUD operation.
func RegisterCallbacks(db *gorm.DB) error {
	cb := db.Callback()

	if err := cb.Query().Before("gorm:query").Register("catalog:query_start", startTimer); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("catalog:query_done", observe("query")); err != nil {
		return err
	}
	if err := cb.Create().Before("gorm:create").Register("catalog:create_start", startTimer); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("catalog:create_done", observe("create")); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("catalog:update_start", startTimer); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("catalog:update_done", observe("update")); err != nil {
		return err
	}
	if err := cb.Delete().Before("gorm:delete").Register("catalog:delete_start", startTimer); err != nil {
		return err
	}
	return cb.Delete().After("gorm:delete").Register("catalog:delete_done", observe("delete"))
}

func startTimer(db *gorm.DB) {
	db.InstanceSet(startTimeKey, time.Now())
}

// observe builds the after-hook for one operation kind. Record-not-found
// is a normal catalog answer, not an error.
func observe(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		value, ok := db.InstanceGet(startTimeKey)
		if !ok {
			return
		}
		start, ok := value.(time.Time)
		if !ok {
			return
		}

		table := db.Statement.Table
		if table == "" {
			table = "unknown"
		}
		telemetry.DatabaseQueryDuration.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())

		if db.Error != nil && db.Error != gorm.ErrRecordNotFound {
			telemetry.DatabaseErrorsTotal.WithLabelValues(operation, "query_error").Inc()
		}
	}
}

// UpdateConnectionMetrics refreshes the pool gauge. Called on a ticker by
// the server's background worker.
func UpdateConnectionMetrics(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	telemetry.DatabaseConnectionsActive.Set(float64(sqlDB.Stats().OpenConnections))
}
