package metrics

import (
	"fmt"
	"path"
	"reflect"
)

// metricAdder allocates a measure for a tagged struct field
type metricAdder func(field interface{}, metric, group string, tags map[string]string) interface{}

func equalType(a, b interface{}) bool {
	return reflect.TypeOf(a) == reflect.TypeOf(b)
}

// scanStruct walks a pointer to a struct and allocates all measures declared
// by "metric" tags. Nested structs extend the metric path with their "group" tag.
func scanStruct(parent string, adder metricAdder, m interface{}) {
	rv := reflect.ValueOf(m)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		panic(fmt.Sprintf("scanStruct requires a pointer to a struct, got: %T", m))
	}
	scanValue(parent, adder, rv.Elem())
}

func scanValue(parent string, adder metricAdder, sv reflect.Value) {
	st := sv.Type()
	for i := 0; i < st.NumField(); i++ {
		field := st.Field(i)
		fv := sv.Field(i)
		if !fv.CanSet() {
			continue
		}

		tags := fieldTags(field)
		group := path.Join(parent, tags["group"])

		switch {
		case tags["metric"] == "" && fv.Kind() == reflect.Struct:
			scanValue(group, adder, fv)
		case tags["metric"] == "" && fv.Kind() == reflect.Ptr && fv.Type().Elem().Kind() == reflect.Struct && !isMeasure(fv):
			if fv.IsNil() {
				fv.Set(reflect.New(fv.Type().Elem()))
			}
			scanValue(group, adder, fv.Elem())
		case tags["metric"] != "" && fv.Kind() == reflect.Ptr:
			if allocated := adder(fv.Interface(), tags["metric"], group, tags); allocated != nil {
				fv.Set(reflect.ValueOf(allocated))
			}
		}
	}
}

func isMeasure(v reflect.Value) bool {
	name := v.Type().Elem().Name()
	return name == "Int64Measure" || name == "Float64Measure"
}

// fieldTags decodes field tags that decorate the struct.
// Supported tags are:
//   - metric: the metric name
//   - group: builds an additional path to the metric (e.g.  root/path/mymetrics/{metric})
//   - description: adds this description to the metric and the associated views
//   - unit: count (default) or milliseconds
//   - extraviews:[aggregator, ...]: builds additional views with alternate aggregators
//   - tags:[key, ...]: tag keys used to group the views
func fieldTags(field reflect.StructField) map[string]string {
	tags := make(map[string]string, 6)
	for _, key := range []string{"metric", "unit", "group", "description"} {
		if v, ok := field.Tag.Lookup(key); ok {
			tags[key] = v
		}
	}
	if views, ok := field.Tag.Lookup("extraviews"); ok {
		tags["views"] = views
	}
	if groupings, ok := field.Tag.Lookup("tags"); ok {
		tags["groupings"] = groupings
	}
	return tags
}
