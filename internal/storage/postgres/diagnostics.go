package postgres

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"

	"github.com/gravadigital/bienestar-api/internal/logger"
)

// seqScanThreshold flags tables that are scanned sequentially more often
// than through an index
const seqScanThreshold = 1000

// Diagnostics reports table and index health for the application tables
type Diagnostics struct {
	db  *gorm.DB
	log *log.Logger
}

func NewDiagnostics(db *gorm.DB) *Diagnostics {
	return &Diagnostics{db: db, log: logger.Repository("diagnostics")}
}

// Report holds the collected statistics and the derived hints
type Report struct {
	Tables      []TableStats    `json:"tables"`
	Indexes     []IndexUsage    `json:"indexes"`
	Connections ConnectionStats `json:"connections"`
	Hints       []string        `json:"hints"`
}

// TableStats represents table statistics
type TableStats struct {
	TableName string `json:"table_name"`
	LiveRows  int64  `json:"live_rows"`
	SeqScans  int64  `json:"seq_scans"`
	IdxScans  int64  `json:"idx_scans"`
	TotalSize string `json:"total_size"`
}

// IndexUsage represents index usage statistics
type IndexUsage struct {
	TableName string `json:"table_name"`
	IndexName string `json:"index_name"`
	Scans     int64  `json:"scans"`
}

// ConnectionStats represents connection statistics
type ConnectionStats struct {
	Total  int `json:"total"`
	Active int `json:"active"`
	Max    int `json:"max"`
}

var appTables = []string{"venues", "events", "event_participants", "accounts"}

// Analyze collects the statistics. Sections that fail are logged and left
// empty.
func (d *Diagnostics) Analyze(ctx context.Context) (*Report, error) {
	report := &Report{}

	tables, err := d.tableStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read table stats: %w", err)
	}
	report.Tables = tables

	if indexes, err := d.indexUsage(ctx); err != nil {
		d.log.Warn("Failed to get index usage", "error", err)
	} else {
		report.Indexes = indexes
	}

	if conns, err := d.connectionStats(ctx); err != nil {
		d.log.Warn("Failed to get connection stats", "error", err)
	} else {
		report.Connections = conns
	}

	report.Hints = Hints(report)

	d.log.Info("Database analysis completed",
		"tables", len(report.Tables),
		"indexes", len(report.Indexes),
		"hints", len(report.Hints))
	return report, nil
}

func (d *Diagnostics) tableStats(ctx context.Context) ([]TableStats, error) {
	var stats []TableStats
	err := d.db.WithContext(ctx).Raw(`
		SELECT relname AS table_name,
			n_live_tup AS live_rows,
			seq_scan AS seq_scans,
			COALESCE(idx_scan, 0) AS idx_scans,
			pg_size_pretty(pg_total_relation_size(relid)) AS total_size
		FROM pg_stat_user_tables
		WHERE relname IN ?
		ORDER BY relname`, appTables).Scan(&stats).Error
	return stats, err
}

func (d *Diagnostics) indexUsage(ctx context.Context) ([]IndexUsage, error) {
	var usage []IndexUsage
	err := d.db.WithContext(ctx).Raw(`
		SELECT relname AS table_name, indexrelname AS index_name, idx_scan AS scans
		FROM pg_stat_user_indexes
		WHERE relname IN ?
		ORDER BY idx_scan ASC, indexrelname`, appTables).Scan(&usage).Error
	return usage, err
}

func (d *Diagnostics) connectionStats(ctx context.Context) (ConnectionStats, error) {
	var stats ConnectionStats
	row := d.db.WithContext(ctx).Raw(`
		SELECT count(*),
			count(*) FILTER (WHERE state = 'active'),
			(SELECT setting::int FROM pg_settings WHERE name = 'max_connections')
		FROM pg_stat_activity
		WHERE datname = current_database()`).Row()
	err := row.Scan(&stats.Total, &stats.Active, &stats.Max)
	return stats, err
}

// Hints derives suggestions from a report
func Hints(r *Report) []string {
	hints := make([]string, 0)

	for _, t := range r.Tables {
		if t.SeqScans > seqScanThreshold && t.SeqScans > t.IdxScans {
			hints = append(hints, fmt.Sprintf("table %s: %d sequential scans vs %d index scans, check the filters hitting it", t.TableName, t.SeqScans, t.IdxScans))
		}
	}
	for _, idx := range r.Indexes {
		if idx.Scans == 0 {
			hints = append(hints, fmt.Sprintf("index %s on %s has never been used", idx.IndexName, idx.TableName))
		}
	}
	if r.Connections.Max > 0 && r.Connections.Total*100 >= r.Connections.Max*80 {
		hints = append(hints, fmt.Sprintf("connections at %d of %d, review the pool size", r.Connections.Total, r.Connections.Max))
	}

	return hints
}
