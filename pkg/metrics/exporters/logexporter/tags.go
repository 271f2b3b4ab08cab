package logexporter

import (
	"strings"

	"go.opencensus.io/tag"
)

type tagsStringer []tag.Tag

func (t tagsStringer) String() string {
	parts := make([]string, 0, len(t))
	for _, tg := range t {
		parts = append(parts, tg.Key.Name()+"="+tg.Value)
	}
	return strings.Join(parts, ",")
}
