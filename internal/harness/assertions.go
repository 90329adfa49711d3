package harness

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/brutalist/internal/remote/remotetest"
	"github.com/roach88/brutalist/internal/state"
)

// AssertionContext is what assertions are evaluated against.
type AssertionContext struct {
	State  *state.Store
	Remote *remotetest.Service
	Events []string
}

// AssertionError describes one failed assertion.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion failed: %s: expected %s, got %s", e.Type, e.Expected, e.Actual)
}

// EvaluateAssertions returns one message per failed assertion.
func EvaluateAssertions(assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for _, a := range assertions {
		if err := evaluate(a, actx); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func evaluate(a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertStock:
		p, ok := actx.State.Product(a.ID)
		if !ok {
			return &AssertionError{Type: a.Type, Expected: "product " + a.ID, Actual: "no such product"}
		}
		return compare(a, p.Stock)
	case AssertMaterialStock:
		m, ok := actx.State.Material(a.ID)
		if !ok {
			return &AssertionError{Type: a.Type, Expected: "material " + a.ID, Actual: "no such material"}
		}
		return compare(a, m.Stock)
	case AssertCount:
		ids, err := collectionIDs(actx.State, a.Collection)
		if err != nil {
			return err
		}
		return compare(a, len(ids))
	case AssertExists, AssertAbsent:
		ids, err := collectionIDs(actx.State, a.Collection)
		if err != nil {
			return err
		}
		found := false
		for _, id := range ids {
			if id == a.ID {
				found = true
				break
			}
		}
		if found != (a.Type == AssertExists) {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%s %s %s", a.Collection, a.ID, a.Type), Actual: fmt.Sprint(ids)}
		}
		return nil
	case AssertField:
		got, err := fieldValue(actx.State, a.Collection, a.ID, a.Field)
		if err != nil {
			return err
		}
		return compare(a, got)
	case AssertEvents:
		if fmt.Sprint(a.Events) != fmt.Sprint(actx.Events) {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprint(a.Events), Actual: fmt.Sprint(actx.Events)}
		}
		return nil
	case AssertRemoteWrites:
		return compare(a, len(actx.Remote.Writes()))
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

// compare matches by printed form so YAML ints and floats compare against
// Go ints and float64s naturally.
func compare(a Assertion, got interface{}) error {
	if fmt.Sprint(got) != fmt.Sprint(a.Value) {
		subject := a.Collection
		if a.ID != "" {
			subject = strings.TrimSpace(subject + " " + a.ID)
		}
		if a.Field != "" {
			subject += "." + a.Field
		}
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%s = %v", subject, a.Value), Actual: fmt.Sprint(got)}
	}
	return nil
}

func collectionIDs(st *state.Store, collection string) ([]string, error) {
	var ids []string
	switch collection {
	case "orders":
		for _, o := range st.Orders() {
			ids = append(ids, o.ID)
		}
	case "products":
		for _, p := range st.Products() {
			ids = append(ids, p.ID)
		}
	case "materials":
		for _, m := range st.Materials() {
			ids = append(ids, m.ID)
		}
	default:
		return nil, fmt.Errorf("unknown collection %q", collection)
	}
	return ids, nil
}

// fieldValue reads a dotted JSON path from one entity, or from the settings
// record when collection is "settings".
func fieldValue(st *state.Store, collection, id, path string) (interface{}, error) {
	var entity interface{}
	var ok bool
	switch collection {
	case "settings":
		entity, ok = st.Settings(), true
	case "orders":
		entity, ok = st.Order(id)
	case "products":
		entity, ok = st.Product(id)
	case "materials":
		entity, ok = st.Material(id)
	default:
		return nil, fmt.Errorf("unknown collection %q", collection)
	}
	if !ok {
		return nil, &AssertionError{Type: AssertField, Expected: collection + " " + id, Actual: "not found"}
	}

	data, err := json.Marshal(entity)
	if err != nil {
		return nil, err
	}
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	for _, key := range strings.Split(path, ".") {
		m, isMap := v.(map[string]interface{})
		if !isMap {
			return nil, &AssertionError{Type: AssertField, Expected: "object at " + key, Actual: fmt.Sprint(v)}
		}
		if v, ok = m[key]; !ok {
			return nil, &AssertionError{Type: AssertField, Expected: "field " + path, Actual: "missing"}
		}
	}
	return v, nil
}
