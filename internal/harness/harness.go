package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/roach88/brutalist/internal/domain"
	"github.com/roach88/brutalist/internal/engine"
	"github.com/roach88/brutalist/internal/events"
	"github.com/roach88/brutalist/internal/ledger"
	"github.com/roach88/brutalist/internal/remote/remotetest"
	"github.com/roach88/brutalist/internal/session"
	"github.com/roach88/brutalist/internal/snapshot"
	"github.com/roach88/brutalist/internal/state"
	"github.com/roach88/brutalist/internal/testutil"
)

// Step outcomes besides the engine error codes.
const (
	OutcomeOK        = "OK"
	OutcomePartial   = "PARTIAL"
	OutcomeRejected  = "REJECTED"
	OutcomeReloaded  = "RELOADED"
	OutcomeUnchanged = "UNCHANGED"
)

// errInjected is returned by the remote for fail_remote steps.
var errInjected = errors.New("injected remote failure")

// Harness holds the collaborators of one scenario run.
type Harness struct {
	state  *state.Store
	engine *engine.Engine
	remote *remotetest.Service
	events *events.Recorder
}

type invocation func(ctx context.Context, h *Harness, args map[string]interface{}) (outcome string, missing []string, err error)

var invocations = map[string]invocation{
	"create_order":        createOrder,
	"delete_order":        deleteOrder,
	"update_order_status": updateOrderStatus,
	"add_product":         addProduct,
	"update_product":      updateProduct,
	"delete_product":      deleteProduct,
	"adjust_stock":        adjustStock,
	"add_material":        addMaterial,
	"update_material":     updateMaterial,
	"delete_material":     deleteMaterial,
	"update_settings":     updateSettings,
	"import":              importBackup,
	"reset":               reset,
	"sign_in":             signIn,
	"refresh":             refresh,
	"sign_out":            signOut,
	"fail_remote":         failRemote,
	"heal_remote":         healRemote,
}

func newHarness(scenario *Scenario) *Harness {
	seed := domain.Seed
	if scenario.Seed == SeedEmpty {
		seed = func(time.Time) domain.Snapshot {
			return domain.Snapshot{Orders: []domain.Order{}, Products: []domain.Product{},
				Materials: []domain.Material{}, Settings: domain.DefaultSettings()}
		}
	}

	h := &Harness{
		state:  state.New(domain.Snapshot{}),
		remote: remotetest.New(),
		events: &events.Recorder{},
	}
	h.engine = engine.New(h.state,
		engine.WithRemote(h.remote),
		engine.WithCache(snapshot.NewCodec(snapshot.NewMemoryKV(), zerolog.Nop())),
		engine.WithPublisher(h.events),
		engine.WithIDGenerator(testutil.NewSequentialIDs("id")),
		engine.WithClock(testutil.Frozen(testutil.Epoch)),
		engine.WithSeed(seed),
	)
	return h
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Load the seed (or sign in when signed_in is set)
// 2. Execute setup steps, failing on any error
// 3. Execute and trace flow steps, checking expect clauses
// 4. Evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	h := newHarness(scenario)
	defer h.engine.Close()

	ctx := context.Background()
	if err := h.engine.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load seed: %w", err)
	}
	if scenario.SignedIn != "" {
		if err := h.engine.SwitchIdentity(ctx, &session.Identity{ID: scenario.SignedIn}); err != nil {
			return nil, fmt.Errorf("failed to sign in: %w", err)
		}
	}

	for i, step := range scenario.Setup {
		outcome, _, err := invocations[step.Invoke](ctx, h, step.Args)
		if err != nil {
			return nil, fmt.Errorf("setup step %d (%s): %w", i+1, step.Invoke, err)
		}
		if outcome != OutcomeOK && outcome != OutcomeReloaded && outcome != OutcomeUnchanged {
			return nil, fmt.Errorf("setup step %d (%s): outcome %s", i+1, step.Invoke, outcome)
		}
	}

	result := NewResult()
	for i, step := range scenario.Flow {
		outcome, missing, err := invocations[step.Invoke](ctx, h, step.Args)
		if err != nil {
			return nil, fmt.Errorf("flow step %d (%s): %w", i+1, step.Invoke, err)
		}
		result.AddStep(TraceEvent{Step: i + 1, Invoke: step.Invoke, Outcome: outcome, Missing: missing})
		checkExpect(result, i+1, step, outcome, missing)
	}
	result.Events = eventNames(h.events.Types())

	actx := &AssertionContext{State: h.state, Remote: h.remote, Events: result.Events}
	for _, msg := range EvaluateAssertions(scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

func checkExpect(result *Result, n int, step Step, outcome string, missing []string) {
	if step.Expect == nil {
		return
	}
	want := step.Expect.Outcome
	if want == "" {
		want = OutcomeOK
	}
	if outcome != want {
		result.AddError(fmt.Sprintf("step %d (%s): expected outcome %s, got %s", n, step.Invoke, want, outcome))
	}
	if step.Expect.Missing != nil && fmt.Sprint(step.Expect.Missing) != fmt.Sprint(missing) {
		result.AddError(fmt.Sprintf("step %d (%s): expected missing %v, got %v", n, step.Invoke, step.Expect.Missing, missing))
	}
}

// outcomeOf maps an intent error to its trace outcome. Errors outside the
// engine's taxonomy are returned so the run aborts.
func outcomeOf(err error) (string, error) {
	if err == nil {
		return OutcomeOK, nil
	}
	if ledger.IsPartial(err) {
		return OutcomePartial, nil
	}
	var ee *engine.Error
	if errors.As(err, &ee) {
		return string(ee.Code), nil
	}
	return "", err
}

func missingOf(j ledger.Journal) []string {
	var out []string
	for _, d := range j.Missing {
		out = append(out, d.ProductID)
	}
	return out
}

func eventNames(types []events.Type) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		out = append(out, string(t))
	}
	return out
}

// decodeArgs converts YAML args into a typed value through JSON, so field
// names follow the domain's JSON tags.
func decodeArgs(args map[string]interface{}, v interface{}) error {
	if args == nil {
		args = map[string]interface{}{}
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode args: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode args: %w", err)
	}
	return nil
}

func stringArg(args map[string]interface{}, key string) string {
	if v, ok := args[key]; ok {
		return fmt.Sprint(v)
	}
	return ""
}

func createOrder(ctx context.Context, h *Harness, args map[string]interface{}) (string, []string, error) {
	var o domain.Order
	if err := decodeArgs(args, &o); err != nil {
		return "", nil, err
	}
	_, journal, err := h.engine.CreateOrder(ctx, o)
	outcome, err := outcomeOf(err)
	return outcome, missingOf(journal), err
}

func deleteOrder(ctx context.Context, h *Harness, args map[string]interface{}) (string, []string, error) {
	journal, err := h.engine.DeleteOrder(ctx, stringArg(args, "id"))
	outcome, err := outcomeOf(err)
	return outcome, missingOf(journal), err
}

func updateOrderStatus(ctx context.Context, h *Harness, args map[string]interface{}) (string, []string, error) {
	_, err := h.engine.UpdateOrderStatus(ctx, stringArg(args, "id"), domain.OrderStatus(stringArg(args, "status")))
	outcome, err := outcomeOf(err)
	return outcome, nil, err
}

func addProduct(ctx context.Context, h *Harness, args map[string]interface{}) (string, []string, error) {
	var p domain.Product
	if err := decodeArgs(args, &p); err != nil {
		return "", nil, err
	}
	_, err := h.engine.AddProduct(ctx, p)
	outcome, err := outcomeOf(err)
	return outcome, nil, err
}

func updateProduct(ctx context.Context, h *Harness, args map[string]interface{}) (string, []string, error) {
	var p domain.Product
	if err := decodeArgs(args, &p); err != nil {
		return "", nil, err
	}
	_, err := h.engine.UpdateProduct(ctx, p)
	outcome, err := outcomeOf(err)
	return outcome, nil, err
}

func deleteProduct(ctx context.Context, h *Harness, args map[string]interface{}) (string, []string, error) {
	outcome, err := outcomeOf(h.engine.DeleteProduct(ctx, stringArg(args, "id")))
	return outcome, nil, err
}

func adjustStock(ctx context.Context, h *Harness, args map[string]interface{}) (string, []string, error) {
	var req struct {
		ID    string `json:"id"`
		Delta int    `json:"delta"`
	}
	if err := decodeArgs(args, &req); err != nil {
		return "", nil, err
	}
	_, err := h.engine.AdjustProductStock(ctx, req.ID, req.Delta)
	outcome, err := outcomeOf(err)
	return outcome, nil, err
}

func addMaterial(ctx context.Context, h *Harness, args map[string]interface{}) (string, []string, error) {
	var m domain.Material
	if err := decodeArgs(args, &m); err != nil {
		return "", nil, err
	}
	_, err := h.engine.AddMaterial(ctx, m)
	outcome, err := outcomeOf(err)
	return outcome, nil, err
}

func updateMaterial(ctx context.Context, h *Harness, args map[string]interface{}) (string, []string, error) {
	var m domain.Material
	if err := decodeArgs(args, &m); err != nil {
		return "", nil, err
	}
	_, err := h.engine.UpdateMaterial(ctx, m)
	outcome, err := outcomeOf(err)
	return outcome, nil, err
}

func deleteMaterial(ctx context.Context, h *Harness, args map[string]interface{}) (string, []string, error) {
	outcome, err := outcomeOf(h.engine.DeleteMaterial(ctx, stringArg(args, "id")))
	return outcome, nil, err
}

func updateSettings(ctx context.Context, h *Harness, args map[string]interface{}) (string, []string, error) {
	var patch domain.SettingsPatch
	if err := decodeArgs(args, &patch); err != nil {
		return "", nil, err
	}
	_, err := h.engine.UpdateSettings(ctx, patch)
	outcome, err := outcomeOf(err)
	return outcome, nil, err
}

// importBackup takes the document as the "document" string arg.
func importBackup(_ context.Context, h *Harness, args map[string]interface{}) (string, []string, error) {
	if !h.engine.Import([]byte(stringArg(args, "document"))) {
		return OutcomeRejected, nil, nil
	}
	return OutcomeOK, nil, nil
}

func reset(ctx context.Context, h *Harness, _ map[string]interface{}) (string, []string, error) {
	if err := h.engine.Reset(ctx); err != nil {
		return "", nil, err
	}
	return OutcomeOK, nil, nil
}

func sessionOutcome(reloaded bool) string {
	if reloaded {
		return OutcomeReloaded
	}
	return OutcomeUnchanged
}

func signIn(ctx context.Context, h *Harness, args map[string]interface{}) (string, []string, error) {
	user := stringArg(args, "user")
	if user == "" {
		return "", nil, errors.New("sign_in requires user")
	}
	reloaded := h.engine.HandleSessionChange(ctx, session.Change{Event: session.SignedIn, Identity: &session.Identity{ID: user}})
	return sessionOutcome(reloaded), nil, nil
}

func refresh(ctx context.Context, h *Harness, _ map[string]interface{}) (string, []string, error) {
	reloaded := h.engine.HandleSessionChange(ctx, session.Change{Event: session.TokenRefreshed, Identity: h.engine.Identity()})
	return sessionOutcome(reloaded), nil, nil
}

func signOut(ctx context.Context, h *Harness, _ map[string]interface{}) (string, []string, error) {
	reloaded := h.engine.HandleSessionChange(ctx, session.Change{Event: session.SignedOut})
	return sessionOutcome(reloaded), nil, nil
}

func failRemote(_ context.Context, h *Harness, args map[string]interface{}) (string, []string, error) {
	op, table := stringArg(args, "op"), stringArg(args, "table")
	if op == "" || table == "" {
		return "", nil, errors.New("fail_remote requires op and table")
	}
	if id := stringArg(args, "id"); id != "" {
		h.remote.FailID(op, table, id, errInjected)
	} else {
		h.remote.Fail(op, table, errInjected)
	}
	return OutcomeOK, nil, nil
}

func healRemote(_ context.Context, h *Harness, _ map[string]interface{}) (string, []string, error) {
	h.remote.Heal()
	return OutcomeOK, nil, nil
}
