package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"

	"context"

	"pactline/internal/config"
	"pactline/internal/db"
	"pactline/internal/domain"
	"pactline/internal/engine"
	"pactline/internal/migrate"
)

const testJWTSecret = "test-secret"

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, config.Default("pactline-test"))
	handler, err := New(Config{
		Engine:   e,
		BasePath: "/v1",
		Auth:     AuthConfig{JWTSecret: testJWTSecret},
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func devToken(t *testing.T, srv *testServer, actorID string) string {
	t.Helper()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/auth/dev/login", map[string]any{
		"actor_id": actorID,
		"roles":    []string{"steward"},
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("dev login status %d: %s", res.StatusCode, string(data))
	}
	var resp DevLoginResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatalf("unmarshal token: %v", err)
	}
	return resp.Token
}

func authHeader(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func TestHealthNeedsNoAuth(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status %d: %s", res.StatusCode, string(data))
	}
}

func TestUnauthenticatedRequestRejected(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/sessions", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", res.StatusCode, string(data))
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal error envelope: %v", err)
	}
	if envelope.Error.Code != "unauthorized" {
		t.Fatalf("expected unauthorized code, got %q", envelope.Error.Code)
	}
}

func TestWhoAmI(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	token := devToken(t, srv, "dana")
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/me", nil, authHeader(token))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("me status %d: %s", res.StatusCode, string(data))
	}
	var me WhoAmIResponse
	if err := json.Unmarshal(data, &me); err != nil {
		t.Fatalf("unmarshal me: %v", err)
	}
	if me.ActorID != "dana" {
		t.Fatalf("expected actor dana, got %q", me.ActorID)
	}
	if len(me.Roles) != 1 || me.Roles[0] != "steward" {
		t.Fatalf("unexpected roles %v", me.Roles)
	}
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	token := devToken(t, srv, "dana")

	createRes, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/sessions", map[string]any{
		"title":          "Customer Orders",
		"requester_name": "Dana Webb",
		"domain":         "sales",
	}, authHeader(token))
	if createRes.StatusCode != http.StatusCreated {
		t.Fatalf("create session status %d: %s", createRes.StatusCode, string(data))
	}
	var created domain.Session
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal session: %v", err)
	}
	if created.CurrentStage != "request" {
		t.Fatalf("expected request stage, got %s", created.CurrentStage)
	}
	sessionID := created.ID

	// Skipping a stage must be rejected.
	skipRes, skipBody := doJSON(t, client, http.MethodPost, srv.URL+"/v1/sessions/"+sessionID+"/advance", map[string]any{
		"target_stage": "specification",
		"actor_name":   "Dana Webb",
	}, authHeader(token))
	if skipRes.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for stage skip, got %d: %s", skipRes.StatusCode, string(skipBody))
	}

	advRes, advBody := doJSON(t, client, http.MethodPost, srv.URL+"/v1/sessions/"+sessionID+"/advance", map[string]any{
		"target_stage": "discovery",
		"actor_name":   "Dana Webb",
		"reason":       "intake complete",
	}, authHeader(token))
	if advRes.StatusCode != http.StatusOK {
		t.Fatalf("advance status %d: %s", advRes.StatusCode, string(advBody))
	}

	// Discovery gate: specification needs a discovery comment first.
	gateRes, gateBody := doJSON(t, client, http.MethodPost, srv.URL+"/v1/sessions/"+sessionID+"/advance", map[string]any{
		"target_stage": "specification",
		"actor_name":   "Dana Webb",
	}, authHeader(token))
	if gateRes.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected gate rejection, got %d: %s", gateRes.StatusCode, string(gateBody))
	}

	commentRes, commentBody := doJSON(t, client, http.MethodPost, srv.URL+"/v1/sessions/"+sessionID+"/comments", map[string]any{
		"author_name": "Dana Webb",
		"content":     "Sources identified.",
	}, authHeader(token))
	if commentRes.StatusCode != http.StatusCreated {
		t.Fatalf("comment status %d: %s", commentRes.StatusCode, string(commentBody))
	}

	advRes, advBody = doJSON(t, client, http.MethodPost, srv.URL+"/v1/sessions/"+sessionID+"/advance", map[string]any{
		"target_stage": "specification",
		"actor_name":   "Dana Webb",
	}, authHeader(token))
	if advRes.StatusCode != http.StatusOK {
		t.Fatalf("advance to specification status %d: %s", advRes.StatusCode, string(advBody))
	}

	objRes, objBody := doJSON(t, client, http.MethodPost, srv.URL+"/v1/sessions/"+sessionID+"/contract/objects", map[string]any{
		"name": "orders",
	}, authHeader(token))
	if objRes.StatusCode != http.StatusCreated {
		t.Fatalf("add object status %d: %s", objRes.StatusCode, string(objBody))
	}

	dupRes, dupBody := doJSON(t, client, http.MethodPost, srv.URL+"/v1/sessions/"+sessionID+"/contract/objects", map[string]any{
		"name": "orders",
	}, authHeader(token))
	if dupRes.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate object, got %d: %s", dupRes.StatusCode, string(dupBody))
	}

	propRes, propBody := doJSON(t, client, http.MethodPost, srv.URL+"/v1/sessions/"+sessionID+"/contract/objects/orders/properties", map[string]any{
		"name":         "order_id",
		"logical_type": "string",
		"primary_key":  true,
		"required":     true,
	}, authHeader(token))
	if propRes.StatusCode != http.StatusCreated {
		t.Fatalf("add property status %d: %s", propRes.StatusCode, string(propBody))
	}

	advRes, advBody = doJSON(t, client, http.MethodPost, srv.URL+"/v1/sessions/"+sessionID+"/advance", map[string]any{
		"target_stage": "review",
		"actor_name":   "Dana Webb",
	}, authHeader(token))
	if advRes.StatusCode != http.StatusOK {
		t.Fatalf("advance to review status %d: %s", advRes.StatusCode, string(advBody))
	}

	listRes, listBody := doJSON(t, client, http.MethodGet, srv.URL+"/v1/sessions?stage=review", nil, authHeader(token))
	if listRes.StatusCode != http.StatusOK {
		t.Fatalf("list sessions status %d: %s", listRes.StatusCode, string(listBody))
	}
	var page paginatedSessions
	if err := json.Unmarshal(listBody, &page); err != nil {
		t.Fatalf("unmarshal listing: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].ID != sessionID {
		t.Fatalf("unexpected listing %s", string(listBody))
	}

	histRes, histBody := doJSON(t, client, http.MethodGet, srv.URL+"/v1/sessions/"+sessionID+"/transitions", nil, authHeader(token))
	if histRes.StatusCode != http.StatusOK {
		t.Fatalf("transitions status %d: %s", histRes.StatusCode, string(histBody))
	}
	var history []domain.StageTransition
	if err := json.Unmarshal(histBody, &history); err != nil {
		t.Fatalf("unmarshal transitions: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 transitions, got %d", len(history))
	}
	if history[0].Reason == nil || *history[0].Reason != "intake complete" {
		t.Fatalf("expected reason on first transition, got %+v", history[0])
	}
	if history[1].Reason != nil {
		t.Fatalf("expected no reason on second transition, got %q", *history[1].Reason)
	}
}

func TestDeleteCommentRoute(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	token := devToken(t, srv, "dana")

	_, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/sessions", map[string]any{
		"title":          "Currency Rates",
		"requester_name": "Marco Lenz",
	}, authHeader(token))
	var created domain.Session
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal session: %v", err)
	}

	commentRes, commentBody := doJSON(t, client, http.MethodPost, srv.URL+"/v1/sessions/"+created.ID+"/comments", map[string]any{
		"author_name": "Marco Lenz",
		"content":     "Wrong thread, please ignore.",
	}, authHeader(token))
	if commentRes.StatusCode != http.StatusCreated {
		t.Fatalf("comment status %d: %s", commentRes.StatusCode, string(commentBody))
	}
	var comment domain.Comment
	if err := json.Unmarshal(commentBody, &comment); err != nil {
		t.Fatalf("unmarshal comment: %v", err)
	}

	delRes, delBody := doJSON(t, client, http.MethodDelete, srv.URL+"/v1/sessions/"+created.ID+"/comments/"+comment.ID, nil, authHeader(token))
	if delRes.StatusCode != http.StatusNoContent {
		t.Fatalf("delete comment status %d: %s", delRes.StatusCode, string(delBody))
	}

	listRes, listBody := doJSON(t, client, http.MethodGet, srv.URL+"/v1/sessions/"+created.ID+"/comments", nil, authHeader(token))
	if listRes.StatusCode != http.StatusOK {
		t.Fatalf("list comments status %d: %s", listRes.StatusCode, string(listBody))
	}
	var comments []domain.Comment
	if err := json.Unmarshal(listBody, &comments); err != nil {
		t.Fatalf("unmarshal comments: %v", err)
	}
	if len(comments) != 0 {
		t.Fatalf("expected empty comment list, got %d", len(comments))
	}

	missingRes, missingBody := doJSON(t, client, http.MethodDelete, srv.URL+"/v1/sessions/"+created.ID+"/comments/"+comment.ID, nil, authHeader(token))
	if missingRes.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for deleted comment, got %d: %s", missingRes.StatusCode, string(missingBody))
	}
}

func TestContractYAMLEndpoints(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	token := devToken(t, srv, "dana")

	_, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/sessions", map[string]any{
		"title":          "Customer Orders",
		"requester_name": "Dana Webb",
	}, authHeader(token))
	var created domain.Session
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal session: %v", err)
	}

	res, body := doJSON(t, client, http.MethodGet, srv.URL+"/v1/sessions/"+created.ID+"/contract/yaml", nil, authHeader(token))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("yaml preview status %d: %s", res.StatusCode, string(body))
	}
	if ct := res.Header.Get("Content-Type"); ct != "application/x-yaml" {
		t.Fatalf("expected yaml content type, got %q", ct)
	}
	if !strings.HasPrefix(string(body), "apiVersion: v3.1.0\n") {
		t.Fatalf("unexpected yaml prefix: %q", string(body)[:40])
	}
	if !strings.Contains(string(body), "kind: DataContract") {
		t.Fatalf("missing kind in yaml")
	}

	dlRes, _ := doJSON(t, client, http.MethodGet, srv.URL+"/v1/sessions/"+created.ID+"/contract/yaml/download", nil, authHeader(token))
	if dlRes.StatusCode != http.StatusOK {
		t.Fatalf("yaml download status %d", dlRes.StatusCode)
	}
	disp := dlRes.Header.Get("Content-Disposition")
	if !strings.Contains(disp, "attachment") || !strings.Contains(disp, "customer_orders.odcs.yaml") {
		t.Fatalf("unexpected content disposition %q", disp)
	}

	missingRes, missingBody := doJSON(t, client, http.MethodGet, srv.URL+"/v1/sessions/nope/contract/yaml", nil, authHeader(token))
	if missingRes.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", missingRes.StatusCode, string(missingBody))
	}
}

func TestAPIKeyAuthFlow(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	token := devToken(t, srv, "admin")

	createRes, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/apikeys", map[string]any{
		"actor_id": "ci-bot",
		"name":     "ci",
	}, authHeader(token))
	if createRes.StatusCode != http.StatusCreated {
		t.Fatalf("create key status %d: %s", createRes.StatusCode, string(data))
	}
	var key APIKeyResponse
	if err := json.Unmarshal(data, &key); err != nil {
		t.Fatalf("unmarshal key: %v", err)
	}
	if key.Key == "" {
		t.Fatalf("expected plaintext key on creation")
	}

	meRes, meBody := doJSON(t, client, http.MethodGet, srv.URL+"/v1/me", nil, map[string]string{"X-Api-Key": key.Key})
	if meRes.StatusCode != http.StatusOK {
		t.Fatalf("me via api key status %d: %s", meRes.StatusCode, string(meBody))
	}
	var me WhoAmIResponse
	if err := json.Unmarshal(meBody, &me); err != nil {
		t.Fatalf("unmarshal me: %v", err)
	}
	if me.ActorID != "ci-bot" {
		t.Fatalf("expected ci-bot, got %q", me.ActorID)
	}

	// Listed keys never include the plaintext secret.
	listRes, listBody := doJSON(t, client, http.MethodGet, srv.URL+"/v1/apikeys", nil, authHeader(token))
	if listRes.StatusCode != http.StatusOK {
		t.Fatalf("list keys status %d: %s", listRes.StatusCode, string(listBody))
	}
	var keys []APIKeyResponse
	if err := json.Unmarshal(listBody, &keys); err != nil {
		t.Fatalf("unmarshal keys: %v", err)
	}
	if len(keys) != 1 || keys[0].Key != "" {
		t.Fatalf("unexpected key listing %s", string(listBody))
	}
}

func TestDatasetRoutes(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	token := devToken(t, srv, "dana")

	createRes, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/datasets", map[string]any{
		"name":   "country_codes",
		"domain": "General",
		"columns": []map[string]any{
			{"name": "code", "column_type": "string", "is_primary_key": true},
			{"name": "label", "column_type": "string", "is_nullable": true},
		},
	}, authHeader(token))
	if createRes.StatusCode != http.StatusCreated {
		t.Fatalf("create dataset status %d: %s", createRes.StatusCode, string(data))
	}
	var ds domain.Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		t.Fatalf("unmarshal dataset: %v", err)
	}
	if ds.Status != "draft" {
		t.Fatalf("expected draft dataset, got %s", ds.Status)
	}

	dupRes, dupBody := doJSON(t, client, http.MethodPost, srv.URL+"/v1/datasets", map[string]any{
		"name": "country_codes",
	}, authHeader(token))
	if dupRes.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate dataset, got %d: %s", dupRes.StatusCode, string(dupBody))
	}

	rowRes, rowBody := doJSON(t, client, http.MethodPost, srv.URL+"/v1/datasets/"+ds.ID+"/rows", map[string]any{
		"values": map[string]string{"code": "US", "label": "United States"},
	}, authHeader(token))
	if rowRes.StatusCode != http.StatusCreated {
		t.Fatalf("add row status %d: %s", rowRes.StatusCode, string(rowBody))
	}

	badRowRes, badRowBody := doJSON(t, client, http.MethodPost, srv.URL+"/v1/datasets/"+ds.ID+"/rows", map[string]any{
		"values": map[string]string{"nope": "x"},
	}, authHeader(token))
	if badRowRes.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown column, got %d: %s", badRowRes.StatusCode, string(badRowBody))
	}

	importRes, importBody := doJSON(t, client, http.MethodPost, srv.URL+"/v1/datasets/"+ds.ID+"/import", map[string]any{
		"rows": []map[string]string{
			{"code": "DE", "label": "Germany"},
			{"code": "JP", "label": "Japan"},
		},
		"replace_all": true,
	}, authHeader(token))
	if importRes.StatusCode != http.StatusOK {
		t.Fatalf("import status %d: %s", importRes.StatusCode, string(importBody))
	}
	var imported ImportRowsResponse
	if err := json.Unmarshal(importBody, &imported); err != nil {
		t.Fatalf("unmarshal import: %v", err)
	}
	if imported.Imported != 2 {
		t.Fatalf("expected 2 imported, got %d", imported.Imported)
	}

	getRes, getBody := doJSON(t, client, http.MethodGet, srv.URL+"/v1/datasets/"+ds.ID, nil, authHeader(token))
	if getRes.StatusCode != http.StatusOK {
		t.Fatalf("get dataset status %d: %s", getRes.StatusCode, string(getBody))
	}
	var withRows DatasetWithRows
	if err := json.Unmarshal(getBody, &withRows); err != nil {
		t.Fatalf("unmarshal dataset with rows: %v", err)
	}
	if len(withRows.Rows) != 2 {
		t.Fatalf("expected replace_all to leave 2 rows, got %d", len(withRows.Rows))
	}

	pubRes, pubBody := doJSON(t, client, http.MethodPost, srv.URL+"/v1/datasets/"+ds.ID+"/publish", nil, authHeader(token))
	if pubRes.StatusCode != http.StatusOK {
		t.Fatalf("publish status %d: %s", pubRes.StatusCode, string(pubBody))
	}
	var published domain.Dataset
	if err := json.Unmarshal(pubBody, &published); err != nil {
		t.Fatalf("unmarshal published: %v", err)
	}
	if published.Status != "active" {
		t.Fatalf("expected active after publish, got %s", published.Status)
	}
}

func TestMapColumnsRoute(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	token := devToken(t, srv, "dana")

	_, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/sessions", map[string]any{
		"title":          "Orders",
		"requester_name": "Dana Webb",
	}, authHeader(token))
	var created domain.Session
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal session: %v", err)
	}
	if res, body := doJSON(t, client, http.MethodPost, srv.URL+"/v1/sessions/"+created.ID+"/contract/objects", map[string]any{
		"name": "orders",
	}, authHeader(token)); res.StatusCode != http.StatusCreated {
		t.Fatalf("add object status %d: %s", res.StatusCode, string(body))
	}

	emptyRes, emptyBody := doJSON(t, client, http.MethodPost, srv.URL+"/v1/sessions/"+created.ID+"/contract/objects/orders/map-columns", map[string]any{
		"mappings": []any{},
	}, authHeader(token))
	if emptyRes.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty mappings, got %d: %s", emptyRes.StatusCode, string(emptyBody))
	}

	mapRes, mapBody := doJSON(t, client, http.MethodPost, srv.URL+"/v1/sessions/"+created.ID+"/contract/objects/orders/map-columns", map[string]any{
		"mappings": []map[string]any{
			{"source_table": "raw.orders", "source_column": "id", "is_primary": true, "logical_type": "string"},
			{"source_table": "raw.orders", "source_column": "total", "logical_type": "number"},
		},
	}, authHeader(token))
	if mapRes.StatusCode != http.StatusOK {
		t.Fatalf("map columns status %d: %s", mapRes.StatusCode, string(mapBody))
	}
	var result MapColumnsResponse
	if err := json.Unmarshal(mapBody, &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if result.Added != 2 || result.TotalColumns != 2 {
		t.Fatalf("unexpected map result %+v", result)
	}
}
