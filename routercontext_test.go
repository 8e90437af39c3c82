package accounts_test

import (
	"context"

	"github.com/goliatone/go-router"
)

// stubContext drives router handlers directly, recording the response they
// produce. Zero-value lookups return the provided defaults.
type stubContext struct {
	reqCtx  context.Context
	headers map[string]string
	params  map[string]string
	query   map[string]string
	locals  map[any]any
	bind    func(any) error

	status     int
	body       any
	redirect   string
	nextCalled bool
}

var _ router.Context = (*stubContext)(nil)

func newStubContext() *stubContext {
	return &stubContext{
		reqCtx:  context.Background(),
		headers: map[string]string{},
		params:  map[string]string{},
		query:   map[string]string{},
		locals:  map[any]any{},
	}
}

func (s *stubContext) Next() error {
	s.nextCalled = true
	return nil
}

func (s *stubContext) Context() context.Context       { return s.reqCtx }
func (s *stubContext) SetContext(ctx context.Context) { s.reqCtx = ctx }

func (s *stubContext) Path() string   { return "" }
func (s *stubContext) Method() string { return "" }
func (s *stubContext) Body() []byte   { return nil }

func (s *stubContext) Status(code int) router.Context {
	s.status = code
	return s
}

func (s *stubContext) SendString(string) error { return nil }
func (s *stubContext) Send([]byte) error       { return nil }

func (s *stubContext) JSON(code int, val any) error {
	s.status = code
	s.body = val
	return nil
}

func (s *stubContext) NoContent(code int) error {
	s.status = code
	return nil
}

func (s *stubContext) Render(name string, bind any, layout ...string) error {
	s.body = bind
	return nil
}

func (s *stubContext) Redirect(path string, status ...int) error {
	s.redirect = path
	if len(status) > 0 {
		s.status = status[0]
	}
	return nil
}

func (s *stubContext) RedirectToRoute(name string, data router.ViewContext, status ...int) error {
	s.redirect = name
	return nil
}

func (s *stubContext) RedirectBack(fallback string, status ...int) error {
	s.redirect = fallback
	return nil
}

func (s *stubContext) SetHeader(key, val string) router.Context {
	s.headers[key] = val
	return s
}

func (s *stubContext) Header(key string) string { return s.headers[key] }

func (s *stubContext) Get(key string, defaultValue any) any {
	if v, ok := s.locals[key]; ok {
		return v
	}
	return defaultValue
}

func (s *stubContext) GetBool(key string, defaultValue bool) bool {
	if v, ok := s.locals[key].(bool); ok {
		return v
	}
	return defaultValue
}

func (s *stubContext) GetInt(key string, defaultValue int) int {
	if v, ok := s.locals[key].(int); ok {
		return v
	}
	return defaultValue
}

func (s *stubContext) GetString(key string, defaultValue string) string {
	if v, ok := s.locals[key].(string); ok {
		return v
	}
	return defaultValue
}

func (s *stubContext) Set(key string, val any) { s.locals[key] = val }

func (s *stubContext) Bind(i any) error {
	if s.bind != nil {
		return s.bind(i)
	}
	return nil
}

func (s *stubContext) BindJSON(i any) error  { return s.Bind(i) }
func (s *stubContext) BindXML(i any) error   { return s.Bind(i) }
func (s *stubContext) BindQuery(i any) error { return s.Bind(i) }

func (s *stubContext) CookieParser(any) error { return nil }
func (s *stubContext) Cookie(*router.Cookie)  {}

func (s *stubContext) Cookies(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (s *stubContext) Param(key string, defaultValue ...string) string {
	if v, ok := s.params[key]; ok {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (s *stubContext) ParamsInt(key string, defaultValue int) int { return defaultValue }

func (s *stubContext) Query(key string, defaultValue string) string {
	if v, ok := s.query[key]; ok {
		return v
	}
	return defaultValue
}

func (s *stubContext) QueryInt(key string, defaultValue int) int { return defaultValue }

func (s *stubContext) Queries() map[string]string { return s.query }

func (s *stubContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		s.locals[key] = value[0]
		return nil
	}
	return s.locals[key]
}

func (s *stubContext) OriginalURL() string          { return "" }
func (s *stubContext) OnNext(callback func() error) {}
func (s *stubContext) Referer() string              { return "" }
