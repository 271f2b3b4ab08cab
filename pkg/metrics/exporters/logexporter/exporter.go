// Package logexporter exports opencensus views to a zap logger.
package logexporter

import (
	"go.opencensus.io/stats/view"
	"go.uber.org/zap"
)

// New builds an opencensus exporter that logs view data at debug level.
//
// A nil logger discards everything.
func New(l *zap.Logger) *Exporter {
	if l == nil {
		l = zap.NewNop()
	}
	return &Exporter{
		l: l,
	}
}

var _ view.Exporter = &Exporter{}

// Exporter writes view rows to a logger
type Exporter struct {
	l *zap.Logger
}

// ExportView logs the view data
func (e *Exporter) ExportView(viewData *view.Data) {
	if viewData == nil || viewData.View == nil {
		return
	}
	for _, row := range viewData.Rows {
		e.l.Debug("metric",
			zap.String("view", viewData.View.Name),
			zap.Stringer("tags", tagsStringer(row.Tags)),
			zap.Any("data", row.Data),
		)
	}
}
