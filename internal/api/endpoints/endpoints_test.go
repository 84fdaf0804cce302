package endpoints

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sales-routing-backend/internal/api"
	"sales-routing-backend/internal/api/middleware"
	"sales-routing-backend/internal/database"
	"sales-routing-backend/internal/dto"
	"sales-routing-backend/internal/flowstore"
	internaljwt "sales-routing-backend/internal/jwt"
	"sales-routing-backend/internal/queue"
	"sales-routing-backend/internal/service/alerts"
	"sales-routing-backend/internal/service/dashboard"
	"sales-routing-backend/internal/service/directory"
	"sales-routing-backend/internal/service/escalation"
	"sales-routing-backend/internal/service/followup"
	"sales-routing-backend/internal/service/operator"
	"sales-routing-backend/internal/service/routing"

	"github.com/prometheus/client_golang/prometheus"
)

const testAppSecret = "app-secret"

type testEnv struct {
	handler   http.Handler
	directory *directory.Service
	scheduler *followup.Scheduler
	alerts    *alerts.Dispatcher
	operators *operator.Service
	token     string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := database.OpenSQLite(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo := directory.NewSQLiteRepository(db)
	dir := directory.NewWithRepository(repo, nil)
	engine := routing.New(repo, routing.Options{Registerer: prometheus.NewRegistry()})
	if err := engine.Load(ctx); err != nil {
		t.Fatalf("load engine: %v", err)
	}

	scheduler := followup.New(followup.Options{Registerer: prometheus.NewRegistry()})
	t.Cleanup(scheduler.Close)

	dispatcher := alerts.NewDispatcher(alerts.Options{
		Sellers:    dir,
		Registerer: prometheus.NewRegistry(),
	})

	policy, err := escalation.New(engine, scheduler, dispatcher, flowstore.NewMemoryStore(), escalation.DefaultConfig(),
		escalation.Options{Registerer: prometheus.NewRegistry()})
	if err != nil {
		t.Fatalf("policy: %v", err)
	}

	issuer, err := internaljwt.NewIssuer("test-secret", internaljwt.NewMemoryRefreshStore(nil), nil)
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	operators := operator.NewWithRepository(operator.NewSQLiteRepository(db), issuer, nil)

	token, err := issuer.CreateToken(internaljwt.Operator{ID: "op-1", Email: "ops@example.com"}, internaljwt.RoleOperator, 0)
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	board := dashboard.New(dir, scheduler, dispatcher, engine, nil)

	conversations := NewConversationEndpoints(policy, scheduler, issuer, "/api/conversations/")
	sellers := NewSellerEndpoints(dir, issuer, "/api/sellers/")
	dash := NewDashboardEndpoints(board)
	testingEndpoints := NewTestingEndpoints(scheduler)
	ops := NewOperatorEndpoints(operators)
	webhook := NewWebhookEndpoints(policy, WebhookConfig{VerifyToken: "verify-me", AppSecret: testAppSecret}, nil)
	utils := NewUtilsEndpoints()
	requireOp := middleware.ValidateOperatorJWT(issuer)

	rqm := queue.NewRequestQueueManager(16, 2)
	t.Cleanup(rqm.Shutdown)
	server := api.NewAPIServer(":0", rqm, api.Options{Registry: prometheus.NewRegistry()}, func(mux *http.ServeMux, s *api.APIServer) {
		mux.HandleFunc("/api/conversations", s.MakeHTTPHandleFunc(conversations.Conversations))
		mux.HandleFunc("/api/conversations/", s.MakeHTTPHandleFunc(conversations.Conversation))
		mux.HandleFunc("/api/sellers", s.MakeHTTPHandleFunc(sellers.Sellers))
		mux.HandleFunc("/api/sellers/", s.MakeHTTPHandleFunc(sellers.Seller))
		mux.HandleFunc("/api/dashboard/snapshot", s.MakeHTTPHandleFunc(dash.Snapshot, requireOp))
		mux.HandleFunc("/api/alerts", s.MakeHTTPHandleFunc(dash.Alerts, requireOp))
		mux.HandleFunc("/api/testing/timer-override", s.MakeHTTPHandleFunc(testingEndpoints.TimerOverride, requireOp))
		mux.HandleFunc("/api/operators/login", s.MakeHTTPHandleFunc(ops.Login))
		mux.HandleFunc("/api/operators/refresh", s.MakeHTTPHandleFunc(ops.Refresh))
		mux.HandleFunc("/api/webhooks/whatsapp", s.MakeHTTPHandleFunc(webhook.WhatsApp))
		mux.HandleFunc("/api/health", s.MakeHTTPHandleFunc(utils.Health))
	})

	return &testEnv{
		handler:   server.Handler(),
		directory: dir,
		scheduler: scheduler,
		alerts:    dispatcher,
		operators: operators,
		token:     token,
	}
}

func (e *testEnv) authHeader() map[string]string {
	return map[string]string{"Authorization": "Bearer " + e.token}
}

func (e *testEnv) addSeller(t *testing.T, name, specialty string) string {
	t.Helper()
	seller := doJSONRequest[dto.SellerResponse](t, e.handler, http.MethodPost, "/api/sellers", dto.CreateSellerRequest{
		DisplayName:   name,
		ContactHandle: "+54911000000" + name[:1],
		Specialty:     specialty,
		MaxClients:    2,
	}, e.authHeader(), http.StatusCreated)
	return seller.SellerID
}

func doJSONRequest[T any](t *testing.T, handler http.Handler, method, target string, body any, headers map[string]string, expectedStatus int) T {
	t.Helper()

	var payload io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		payload = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, target, payload)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != expectedStatus {
		t.Fatalf("%s %s: expected status %d, got %d: %s", method, target, expectedStatus, rec.Code, rec.Body.String())
	}

	var result T
	if expectedStatus != http.StatusNoContent {
		if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return result
}

func waitForState(t *testing.T, env *testEnv, id, state string) dto.ConversationResponse {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		conv := doJSONRequest[dto.ConversationResponse](t, env.handler, http.MethodGet, "/api/conversations/"+id, nil, nil, http.StatusOK)
		if conv.State == state {
			return conv
		}
		if time.Now().After(deadline) {
			t.Fatalf("conversation %s stuck in %s, want %s", id, conv.State, state)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	got := doJSONRequest[map[string]string](t, env.handler, http.MethodGet, "/api/health", nil, nil, http.StatusOK)
	if got["status"] != "ok" {
		t.Fatalf("unexpected health body %v", got)
	}
}

func TestStartConversationAssignsSellerAndArmsTimer(t *testing.T) {
	env := newTestEnv(t)
	sellerID := env.addSeller(t, "Ana", "general")

	conv := doJSONRequest[dto.ConversationResponse](t, env.handler, http.MethodPost, "/api/conversations", dto.StartConversationRequest{
		ConversationID: "5491100000001",
		Stage:          followup.StageAdvisor,
		CustomerLabel:  "Lucia",
	}, nil, http.StatusCreated)
	if conv.SellerID != sellerID || conv.State != "active" || conv.DueAt == "" {
		t.Fatalf("unexpected conversation %+v", conv)
	}

	timers := doJSONRequest[[]dto.TimerResponse](t, env.handler, http.MethodGet, "/api/conversations/5491100000001/timers", nil, nil, http.StatusOK)
	if len(timers) != 1 || timers[0].Stage != followup.StageAdvisor || timers[0].DelaySeconds != int64((15*time.Minute)/time.Second) {
		t.Fatalf("unexpected timers %+v", timers)
	}
}

func TestStartConversationErrors(t *testing.T) {
	env := newTestEnv(t)

	doJSONRequest[api.ApiError](t, env.handler, http.MethodPost, "/api/conversations", dto.StartConversationRequest{
		ConversationID: "5491100000001",
		Stage:          followup.StageAdvisor,
	}, nil, http.StatusServiceUnavailable)

	env.addSeller(t, "Ana", "general")
	doJSONRequest[api.ApiError](t, env.handler, http.MethodPost, "/api/conversations", dto.StartConversationRequest{
		ConversationID: "5491100000001",
		Stage:          "unknown-stage",
	}, nil, http.StatusBadRequest)

	doJSONRequest[api.ApiError](t, env.handler, http.MethodGet, "/api/conversations/missing", nil, nil, http.StatusNotFound)
	doJSONRequest[api.ApiError](t, env.handler, http.MethodDelete, "/api/conversations", nil, nil, http.StatusMethodNotAllowed)
}

func TestFollowUpNegativeReplyEscalatesUntilOperatorResolves(t *testing.T) {
	env := newTestEnv(t)
	env.addSeller(t, "Ana", "general")
	if err := env.scheduler.SetDelayOverride(5 * time.Millisecond); err != nil {
		t.Fatalf("override: %v", err)
	}

	doJSONRequest[dto.ConversationResponse](t, env.handler, http.MethodPost, "/api/conversations", dto.StartConversationRequest{
		ConversationID: "5491100000002",
		Stage:          followup.StageProblem,
	}, nil, http.StatusCreated)
	waitForState(t, env, "5491100000002", "followup_pending")

	reply := doJSONRequest[dto.ReplyResponse](t, env.handler, http.MethodPost, "/api/conversations/5491100000002/replies",
		dto.ReplyRequest{Text: "No, todavía no"}, nil, http.StatusOK)
	if reply.Outcome != "escalated" || reply.Kind != "negative" || reply.Conversation.Priority != "critical" {
		t.Fatalf("unexpected reply result %+v", reply)
	}

	doJSONRequest[api.ApiError](t, env.handler, http.MethodPost, "/api/conversations/5491100000002/resolve", nil, nil, http.StatusUnauthorized)
	resolved := doJSONRequest[dto.ConversationResponse](t, env.handler, http.MethodPost, "/api/conversations/5491100000002/resolve",
		nil, env.authHeader(), http.StatusOK)
	if resolved.State != "resolved" || resolved.ResolvedBy != "ops@example.com" {
		t.Fatalf("unexpected resolved conversation %+v", resolved)
	}

	history := doJSONRequest[[]dto.AlertResponse](t, env.handler, http.MethodGet, "/api/alerts?reason=problema_pedido", nil, env.authHeader(), http.StatusOK)
	if len(history) != 1 || history[0].Priority != "critical" {
		t.Fatalf("unexpected escalation alerts %+v", history)
	}
}

func TestSellerEndpointsRequireOperatorForMutations(t *testing.T) {
	env := newTestEnv(t)

	doJSONRequest[api.ApiError](t, env.handler, http.MethodPost, "/api/sellers", dto.CreateSellerRequest{
		DisplayName: "Ana", ContactHandle: "+5491100000000",
	}, nil, http.StatusUnauthorized)

	id := env.addSeller(t, "Ana", "joyas")

	list := doJSONRequest[[]dto.SellerResponse](t, env.handler, http.MethodGet, "/api/sellers?specialty=JOYAS", nil, nil, http.StatusOK)
	if len(list) != 1 || list[0].SellerID != id {
		t.Fatalf("unexpected list %+v", list)
	}

	maxClients := 5
	updated := doJSONRequest[dto.SellerResponse](t, env.handler, http.MethodPatch, "/api/sellers/"+id,
		dto.UpdateSellerRequest{MaxClients: &maxClients}, env.authHeader(), http.StatusOK)
	if updated.MaxClients != 5 {
		t.Fatalf("max clients not updated: %+v", updated)
	}

	inactive := false
	status := doJSONRequest[dto.SellerResponse](t, env.handler, http.MethodPost, "/api/sellers/"+id+"/status",
		dto.SellerStatusRequest{Status: "busy", Active: &inactive}, env.authHeader(), http.StatusOK)
	if status.Status != "busy" || status.Active {
		t.Fatalf("status not applied: %+v", status)
	}
	doJSONRequest[api.ApiError](t, env.handler, http.MethodPost, "/api/sellers/"+id+"/status",
		dto.SellerStatusRequest{}, env.authHeader(), http.StatusBadRequest)

	withDay := doJSONRequest[dto.SellerResponse](t, env.handler, http.MethodPost, "/api/sellers/"+id+"/days-off",
		dto.DayOff{Date: "2026-12-25", Reason: "holiday"}, env.authHeader(), http.StatusOK)
	if len(withDay.DaysOff) != 1 {
		t.Fatalf("day off not added: %+v", withDay)
	}
	withoutDay := doJSONRequest[dto.SellerResponse](t, env.handler, http.MethodDelete, "/api/sellers/"+id+"/days-off/2026-12-25",
		nil, env.authHeader(), http.StatusOK)
	if len(withoutDay.DaysOff) != 0 {
		t.Fatalf("day off not removed: %+v", withoutDay)
	}

	doJSONRequest[struct{}](t, env.handler, http.MethodDelete, "/api/sellers/"+id, nil, env.authHeader(), http.StatusNoContent)
	doJSONRequest[api.ApiError](t, env.handler, http.MethodGet, "/api/sellers/"+id, nil, nil, http.StatusNotFound)
}

func TestDashboardSnapshotRequiresOperator(t *testing.T) {
	env := newTestEnv(t)
	env.addSeller(t, "Ana", "general")

	doJSONRequest[api.ApiError](t, env.handler, http.MethodGet, "/api/dashboard/snapshot", nil, nil, http.StatusUnauthorized)

	snap := doJSONRequest[dto.SnapshotResponse](t, env.handler, http.MethodGet, "/api/dashboard/snapshot?recent=5", nil, env.authHeader(), http.StatusOK)
	if len(snap.Sellers) != 1 || snap.SellerStats.Total != 1 || snap.GeneratedAt == "" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	doJSONRequest[api.ApiError](t, env.handler, http.MethodGet, "/api/dashboard/snapshot?recent=abc", nil, env.authHeader(), http.StatusBadRequest)
}

func TestTimerOverridePresets(t *testing.T) {
	env := newTestEnv(t)

	got := doJSONRequest[dto.TimerOverrideResponse](t, env.handler, http.MethodGet, "/api/testing/timer-override", nil, env.authHeader(), http.StatusOK)
	if got.Active {
		t.Fatalf("override should start inactive")
	}

	got = doJSONRequest[dto.TimerOverrideResponse](t, env.handler, http.MethodPut, "/api/testing/timer-override",
		dto.TimerOverrideRequest{Delay: "1m"}, env.authHeader(), http.StatusOK)
	if !got.Active || got.DelaySeconds != 60 {
		t.Fatalf("unexpected override %+v", got)
	}
	if d, ok := env.scheduler.DelayOverride(); !ok || d != time.Minute {
		t.Fatalf("scheduler override = %v %v", d, ok)
	}

	doJSONRequest[api.ApiError](t, env.handler, http.MethodPut, "/api/testing/timer-override",
		dto.TimerOverrideRequest{Delay: "7m"}, env.authHeader(), http.StatusBadRequest)

	got = doJSONRequest[dto.TimerOverrideResponse](t, env.handler, http.MethodDelete, "/api/testing/timer-override", nil, env.authHeader(), http.StatusOK)
	if got.Active {
		t.Fatalf("override should be cleared")
	}
}

func TestOperatorLoginAndRefresh(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.operators.Create(context.Background(), operator.CreateParams{
		Email: "ops@example.com", Name: "Ops", Password: "correct-horse",
	}); err != nil {
		t.Fatalf("create operator: %v", err)
	}

	doJSONRequest[api.ApiError](t, env.handler, http.MethodPost, "/api/operators/login",
		dto.LoginRequest{Email: "ops@example.com", Password: "wrong-password"}, nil, http.StatusUnauthorized)

	auth := doJSONRequest[dto.AuthResponse](t, env.handler, http.MethodPost, "/api/operators/login",
		dto.LoginRequest{Email: "ops@example.com", Password: "correct-horse"}, nil, http.StatusOK)
	if auth.AccessToken == "" || auth.RefreshToken == "" || auth.Operator == nil || auth.Operator.Email != "ops@example.com" {
		t.Fatalf("unexpected auth response %+v", auth)
	}

	refreshed := doJSONRequest[dto.AuthResponse](t, env.handler, http.MethodPost, "/api/operators/refresh",
		dto.RefreshRequest{RefreshToken: auth.RefreshToken}, nil, http.StatusOK)
	if refreshed.AccessToken == "" {
		t.Fatalf("refresh returned no access token")
	}
}

func signBody(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testAppSecret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestWebhookVerification(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/webhooks/whatsapp?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=12345", nil)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "12345" {
		t.Fatalf("handshake failed: %d %q", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/webhooks/whatsapp?hub.mode=subscribe&hub.verify_token=nope&hub.challenge=12345", nil)
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestWebhookFeedsRepliesToPolicy(t *testing.T) {
	env := newTestEnv(t)
	env.addSeller(t, "Ana", "general")
	if err := env.scheduler.SetDelayOverride(5 * time.Millisecond); err != nil {
		t.Fatalf("override: %v", err)
	}
	doJSONRequest[dto.ConversationResponse](t, env.handler, http.MethodPost, "/api/conversations", dto.StartConversationRequest{
		ConversationID: "5491100000003",
		Stage:          followup.StageAdvisor,
	}, nil, http.StatusCreated)
	waitForState(t, env, "5491100000003", "followup_pending")

	body := []byte(`{"object":"whatsapp_business_account","entry":[{"id":"1","changes":[{"field":"messages","value":{
		"messaging_product":"whatsapp",
		"messages":[
			{"from":"5491100000003","id":"m1","type":"text","text":{"body":"Sí, ya me atendieron"}},
			{"from":"5491199999999","id":"m2","type":"text","text":{"body":"hola"}},
			{"from":"5491100000003","id":"m3","type":"image"}
		]}}]}]}`)

	unsigned := httptest.NewRequest(http.MethodPost, "/api/webhooks/whatsapp", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, unsigned)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected unsigned webhook to be rejected, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/whatsapp", bytes.NewReader(body))
	req.Header.Set(signatureHeader, signBody(body))
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("signed webhook: %d %s", rec.Code, rec.Body.String())
	}
	var signed dto.WebhookResult
	if err := json.NewDecoder(rec.Body).Decode(&signed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if signed.Processed != 1 || signed.Ignored != 2 {
		t.Fatalf("unexpected webhook result %+v", signed)
	}

	waitForState(t, env, "5491100000003", "resolved")
}

func TestSplitPath(t *testing.T) {
	cases := []struct {
		path, id, action string
		ok               bool
	}{
		{"/api/conversations/abc", "abc", "", true},
		{"/api/conversations/abc/replies", "abc", "replies", true},
		{"/api/conversations/abc/days-off/2026-01-01", "abc", "days-off/2026-01-01", true},
		{"/api/conversations/", "", "", false},
		{"/other/abc", "", "", false},
	}
	for _, tc := range cases {
		id, action, err := splitPath(tc.path, "/api/conversations/")
		if (err == nil) != tc.ok || id != tc.id || action != tc.action {
			t.Errorf("splitPath(%q) = %q %q %v", tc.path, id, action, err)
		}
	}
}

func TestServiceErrorStatus(t *testing.T) {
	err := serviceError(&escalation.Error{Code: escalation.ErrorCodeConflict, Message: "escalated"})
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusConflict || httpErr.Message != "escalated" {
		t.Fatalf("unexpected mapping %+v", err)
	}

	err = serviceError(&directory.Error{Code: directory.ErrorCodeInternal, Message: "db down"})
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusInternalServerError || strings.Contains(httpErr.Message, "db") {
		t.Fatalf("internal errors must not leak: %+v", err)
	}
}
