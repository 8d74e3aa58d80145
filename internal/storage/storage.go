package storage

import "honeypotScope/internal/model"

// ReportSink receives finished probe reports.
type ReportSink interface {
	PutReports(reports []model.ProbeReport) error
}
