package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Recorded is one request seen by a FakeController.
type Recorded struct {
	Method string
	// Path is the decoded request path.
	Path string
	// RawQuery is the query string exactly as sent.
	RawQuery string
	// Cookie is the session cookie value, empty when absent.
	Cookie string
	Body   []byte
}

// URI returns the path and query of the recorded request.
func (r Recorded) URI() string {
	if r.RawQuery == "" {
		return r.Path
	}
	return r.Path + "?" + r.RawQuery
}

type storedObject struct {
	class      string
	attributes map[string]string
	children   []json.RawMessage
}

func (o storedObject) MarshalJSON() ([]byte, error) {
	body := map[string]any{"attributes": o.attributes}
	if len(o.children) > 0 {
		body["children"] = o.children
	}
	//nolint:wrapcheck // Marshal errors are returned to encoding/json unchanged
	return json.Marshal(map[string]any{o.class: body})
}

type stub struct {
	status int
	body   string
}

// FakeController is an in-memory fabric controller served over HTTP.
//
// It authenticates aaaLogin requests against fixed credentials, requires
// the issued session cookie on every other call, stores objects POSTed to
// /api/node/mo/<dn>.json and answers class and subtree queries with the
// controller's filter syntax (eq, ne, and, or, wcard).
type FakeController struct {
	Server *httptest.Server

	username string
	password string

	mu       sync.Mutex
	token    string
	objects  map[string]storedObject
	requests []Recorded
	stubs    map[string]stub
}

// NewFakeController starts a controller accepting username/password.
// The server is closed when the test ends.
func NewFakeController(t *testing.T, username, password string) *FakeController {
	t.Helper()

	fc := &FakeController{
		username: username,
		password: password,
		objects:  make(map[string]storedObject),
		stubs:    make(map[string]stub),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(fc.record)
	e.POST("/api/aaaLogin.json", fc.login)
	e.GET("/api/aaaRefresh.json", fc.refresh, fc.authenticated)
	e.Any("/api/node/mo/*", fc.managedObject, fc.authenticated)
	e.GET("/api/node/class/*", fc.classQuery, fc.authenticated)

	fc.Server = httptest.NewServer(e)
	t.Cleanup(fc.Server.Close)

	return fc
}

// URL returns the base URL of the controller.
func (fc *FakeController) URL() string {
	return fc.Server.URL
}

// Token returns the session token issued by the last successful login.
func (fc *FakeController) Token() string {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.token
}

// ExpireSession invalidates the current session token.
func (fc *FakeController) ExpireSession() {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.token = ""
}

// Requests returns a copy of every request received so far.
func (fc *FakeController) Requests() []Recorded {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return append([]Recorded(nil), fc.requests...)
}

// RequestsFor returns recorded requests with the given method.
func (fc *FakeController) RequestsFor(method string) []Recorded {
	var out []Recorded
	for _, r := range fc.Requests() {
		if r.Method == method {
			out = append(out, r)
		}
	}
	return out
}

// Stub makes the controller answer method+path (query ignored) with a
// canned status and body, bypassing the object store.
func (fc *FakeController) Stub(method, path string, status int, body string) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.stubs[method+" "+path] = stub{status: status, body: body}
}

// Seed stores managed objects as if they had been created. Each object is
// a JSON document such as {"fabricPod":{"attributes":{"dn":"topology/pod-1"}}}.
func (fc *FakeController) Seed(t *testing.T, objects ...string) {
	t.Helper()

	fc.mu.Lock()
	defer fc.mu.Unlock()

	for _, raw := range objects {
		if err := fc.store(json.RawMessage(raw), "", true); err != nil {
			t.Fatalf("seed %s: %v", raw, err)
		}
	}
}

// Object returns the stored attributes of dn.
func (fc *FakeController) Object(dn string) (map[string]string, bool) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	obj, ok := fc.objects[dn]
	if !ok {
		return nil, false
	}
	return obj.attributes, true
}

func (fc *FakeController) record(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()

		body, err := io.ReadAll(req.Body)
		if err != nil {
			return c.JSONBlob(http.StatusBadRequest, []byte(ErrorEnvelope(400, "unreadable body")))
		}
		req.Body = io.NopCloser(strings.NewReader(string(body)))

		rec := Recorded{
			Method:   req.Method,
			Path:     req.URL.Path,
			RawQuery: req.URL.RawQuery,
			Body:     body,
		}
		if cookie, err := req.Cookie(CookieName); err == nil {
			rec.Cookie = cookie.Value
		}

		fc.mu.Lock()
		fc.requests = append(fc.requests, rec)
		canned, stubbed := fc.stubs[req.Method+" "+req.URL.Path]
		fc.mu.Unlock()

		if stubbed {
			return c.JSONBlob(canned.status, []byte(canned.body))
		}

		return next(c)
	}
}

func (fc *FakeController) authenticated(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		cookie, err := c.Cookie(CookieName)

		fc.mu.Lock()
		valid := err == nil && fc.token != "" && cookie.Value == fc.token
		fc.mu.Unlock()

		if !valid {
			return c.JSONBlob(http.StatusForbidden, []byte(ErrorEnvelope(403, "Token was invalid (Error: Token timeout)")))
		}

		return next(c)
	}
}

func (fc *FakeController) login(c echo.Context) error {
	var payload struct {
		AAAUser struct {
			Attributes struct {
				Name string `json:"name"`
				Pwd  string `json:"pwd"`
			} `json:"attributes"`
		} `json:"aaaUser"`
	}

	if err := json.NewDecoder(c.Request().Body).Decode(&payload); err != nil {
		return c.JSONBlob(http.StatusBadRequest, []byte(ErrorEnvelope(400, "malformed login payload")))
	}

	attrs := payload.AAAUser.Attributes
	if attrs.Name != fc.username || attrs.Pwd != fc.password {
		return c.JSONBlob(http.StatusUnauthorized,
			[]byte(ErrorEnvelope(401, "Username or password is incorrect - FAILED local authentication")))
	}

	token := uuid.NewString()

	fc.mu.Lock()
	fc.token = token
	fc.mu.Unlock()

	return c.JSONBlob(http.StatusOK, []byte(LoginEnvelope(token)))
}

func (fc *FakeController) refresh(c echo.Context) error {
	token := uuid.NewString()

	fc.mu.Lock()
	fc.token = token
	fc.mu.Unlock()

	return c.JSONBlob(http.StatusOK, []byte(LoginEnvelope(token)))
}

func (fc *FakeController) managedObject(c echo.Context) error {
	req := c.Request()

	dn, ok := strings.CutSuffix(strings.TrimPrefix(req.URL.Path, "/api/node/mo/"), ".json")
	if !ok || dn == "" {
		return c.JSONBlob(http.StatusBadRequest, []byte(ErrorEnvelope(400, "malformed object path")))
	}

	if req.Method == http.MethodGet {
		return fc.subtreeQuery(c, dn)
	}

	if req.Method != http.MethodPost {
		return c.JSONBlob(http.StatusMethodNotAllowed, []byte(ErrorEnvelope(405, "method not allowed")))
	}

	body, err := io.ReadAll(req.Body)
	if err != nil || len(body) == 0 {
		return c.JSONBlob(http.StatusBadRequest, []byte(ErrorEnvelope(400, "empty payload")))
	}

	fc.mu.Lock()
	err = fc.store(body, dn, false)
	fc.mu.Unlock()

	if err != nil {
		return c.JSONBlob(http.StatusBadRequest, []byte(ErrorEnvelope(103, err.Error())))
	}

	return c.JSONBlob(http.StatusOK, []byte(Envelope()))
}

// store registers raw and every descendant carrying a dn. A top-level
// object without a dn (a relation posted to targetDN) is appended to the
// children of targetDN. Callers hold fc.mu.
func (fc *FakeController) store(raw json.RawMessage, targetDN string, overwrite bool) error {
	var mo map[string]struct {
		Attributes map[string]string `json:"attributes"`
		Children   []json.RawMessage `json:"children"`
	}
	if err := json.Unmarshal(raw, &mo); err != nil {
		return errors.Wrap(err, "malformed payload")
	}

	for class, body := range mo {
		dn := body.Attributes["dn"]
		if dn == "" {
			if parent, ok := fc.objects[targetDN]; ok {
				parent.children = append(parent.children, raw)
				fc.objects[targetDN] = parent
			}
			continue
		}

		existing, exists := fc.objects[dn]
		if exists && !overwrite && body.Attributes["status"] == "created" {
			return errors.Newf("%s %s already exists.", class, dn)
		}

		attrs := make(map[string]string, len(body.Attributes)+1)
		if exists {
			for k, v := range existing.attributes {
				attrs[k] = v
			}
		}
		for k, v := range body.Attributes {
			if k != "status" {
				attrs[k] = v
			}
		}
		attrs["dn"] = dn

		fc.objects[dn] = storedObject{class: class, attributes: attrs, children: body.Children}

		for _, child := range body.Children {
			if err := fc.store(child, "", overwrite); err != nil {
				return err
			}
		}
	}

	return nil
}

func (fc *FakeController) subtreeQuery(c echo.Context, dn string) error {
	params := c.QueryParams()

	filter, err := parseFilter(params.Get("query-target-filter"))
	if err != nil {
		return c.JSONBlob(http.StatusBadRequest, []byte(ErrorEnvelope(121, err.Error())))
	}

	var classes []string
	if raw := params.Get("target-subtree-class"); raw != "" {
		classes = strings.Split(raw, ",")
	}

	target := params.Get("query-target")

	fc.mu.Lock()
	defer fc.mu.Unlock()

	var out []storedObject
	for objDN, obj := range fc.objects {
		switch target {
		case "children":
			if !isDirectChild(dn, objDN) {
				continue
			}
		case "subtree":
			if objDN != dn && !strings.HasPrefix(objDN, dn+"/") {
				continue
			}
		default:
			if objDN != dn {
				continue
			}
		}

		if len(classes) > 0 && !contains(classes, obj.class) {
			continue
		}
		if !filter.match(obj) {
			continue
		}

		out = append(out, obj)
	}

	return c.JSONBlob(http.StatusOK, envelopeOf(out))
}

func (fc *FakeController) classQuery(c echo.Context) error {
	rest, ok := strings.CutSuffix(strings.TrimPrefix(c.Request().URL.Path, "/api/node/class/"), ".json")
	if !ok || rest == "" {
		return c.JSONBlob(http.StatusBadRequest, []byte(ErrorEnvelope(400, "malformed class path")))
	}

	scope := ""
	class := rest
	if i := strings.LastIndex(rest, "/"); i >= 0 {
		scope, class = rest[:i], rest[i+1:]
	}

	filter, err := parseFilter(c.QueryParam("query-target-filter"))
	if err != nil {
		return c.JSONBlob(http.StatusBadRequest, []byte(ErrorEnvelope(121, err.Error())))
	}

	fc.mu.Lock()
	defer fc.mu.Unlock()

	var out []storedObject
	for objDN, obj := range fc.objects {
		if obj.class != class {
			continue
		}
		if scope != "" && !strings.HasPrefix(objDN, scope+"/") {
			continue
		}
		if !filter.match(obj) {
			continue
		}
		out = append(out, obj)
	}

	return c.JSONBlob(http.StatusOK, envelopeOf(out))
}

func envelopeOf(objects []storedObject) []byte {
	sort.Slice(objects, func(i, j int) bool {
		return objects[i].attributes["dn"] < objects[j].attributes["dn"]
	})

	docs := make([]string, 0, len(objects))
	for _, obj := range objects {
		raw, err := json.Marshal(obj)
		if err != nil {
			panic(err)
		}
		docs = append(docs, string(raw))
	}

	return []byte(Envelope(docs...))
}

// isDirectChild reports whether child sits exactly one level below parent.
// Slashes inside brackets (interface ids) do not count as levels.
func isDirectChild(parent, child string) bool {
	rest, ok := strings.CutPrefix(child, parent+"/")
	if !ok || rest == "" {
		return false
	}

	depth := 0
	for _, r := range rest {
		switch r {
		case '[':
			depth++
		case ']':
			depth--
		case '/':
			if depth == 0 {
				return false
			}
		}
	}

	return true
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
