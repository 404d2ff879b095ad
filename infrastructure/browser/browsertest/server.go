package browsertest

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"

	"selene/domain/entities"
)

const (
	// SessionID - is the id of the single session a Server hands out
	SessionID = "selene-session"

	w3cElementKey    = "element-6066-11e4-a52e-4f735466cecf"
	legacyElementKey = "ELEMENT"
)

// Server - speaks the subset of the W3C WebDriver protocol selene uses, backed by a Page
type Server struct {
	*httptest.Server

	page *Page

	mu       sync.Mutex
	open     bool
	requests []string
}

// NewServer - starts a WebDriver endpoint for p; callers must Close it
func NewServer(p *Page) *Server {
	s := &Server{page: p}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /session", s.newSession)
	mux.HandleFunc("DELETE /session/{sid}", s.session(s.deleteSession))

	mux.HandleFunc("POST /session/{sid}/url", s.session(s.navigate))
	mux.HandleFunc("GET /session/{sid}/url", s.session(func(w http.ResponseWriter, r *http.Request) {
		writeValue(w, s.page.URL())
	}))
	mux.HandleFunc("GET /session/{sid}/title", s.session(func(w http.ResponseWriter, r *http.Request) {
		writeValue(w, s.page.Title())
	}))
	mux.HandleFunc("GET /session/{sid}/source", s.session(func(w http.ResponseWriter, r *http.Request) {
		src, err := s.page.Source()
		writeResult(w, src, err)
	}))
	mux.HandleFunc("GET /session/{sid}/screenshot", s.session(func(w http.ResponseWriter, r *http.Request) {
		png, err := s.page.Screenshot()
		writeResult(w, base64.StdEncoding.EncodeToString(png), err)
	}))
	mux.HandleFunc("POST /session/{sid}/execute/sync", s.session(s.executeScript))

	mux.HandleFunc("POST /session/{sid}/element", s.session(s.find("", true)))
	mux.HandleFunc("POST /session/{sid}/elements", s.session(s.find("", false)))
	mux.HandleFunc("POST /session/{sid}/element/{eid}/element", s.session(s.find("eid", true)))
	mux.HandleFunc("POST /session/{sid}/element/{eid}/elements", s.session(s.find("eid", false)))

	mux.HandleFunc("GET /session/{sid}/element/{eid}/displayed", s.session(func(w http.ResponseWriter, r *http.Request) {
		v, err := s.page.Displayed(r.PathValue("eid"))
		writeResult(w, v, err)
	}))
	mux.HandleFunc("GET /session/{sid}/element/{eid}/enabled", s.session(func(w http.ResponseWriter, r *http.Request) {
		v, err := s.page.Enabled(r.PathValue("eid"))
		writeResult(w, v, err)
	}))
	mux.HandleFunc("GET /session/{sid}/element/{eid}/selected", s.session(func(w http.ResponseWriter, r *http.Request) {
		v, err := s.page.Selected(r.PathValue("eid"))
		writeResult(w, v, err)
	}))
	mux.HandleFunc("GET /session/{sid}/element/{eid}/text", s.session(func(w http.ResponseWriter, r *http.Request) {
		v, err := s.page.Text(r.PathValue("eid"))
		writeResult(w, v, err)
	}))
	mux.HandleFunc("GET /session/{sid}/element/{eid}/name", s.session(func(w http.ResponseWriter, r *http.Request) {
		v, err := s.page.TagName(r.PathValue("eid"))
		writeResult(w, v, err)
	}))
	mux.HandleFunc("GET /session/{sid}/element/{eid}/attribute/{name}", s.session(func(w http.ResponseWriter, r *http.Request) {
		v, ok, err := s.page.Attribute(r.PathValue("eid"), r.PathValue("name"))
		if err == nil && !ok {
			writeValue(w, nil)
			return
		}
		writeResult(w, v, err)
	}))
	mux.HandleFunc("GET /session/{sid}/element/{eid}/css/{property}", s.session(func(w http.ResponseWriter, r *http.Request) {
		v, err := s.page.CSSValue(r.PathValue("eid"), r.PathValue("property"))
		writeResult(w, v, err)
	}))
	mux.HandleFunc("POST /session/{sid}/element/{eid}/click", s.session(func(w http.ResponseWriter, r *http.Request) {
		writeResult(w, nil, s.page.Click(r.PathValue("eid")))
	}))
	mux.HandleFunc("POST /session/{sid}/element/{eid}/clear", s.session(func(w http.ResponseWriter, r *http.Request) {
		writeResult(w, nil, s.page.Clear(r.PathValue("eid")))
	}))
	mux.HandleFunc("POST /session/{sid}/element/{eid}/value", s.session(s.sendKeys))

	s.Server = httptest.NewServer(mux)
	return s
}

// Requests - lists "METHOD path" of every request served, oldest first
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// SessionOpen - reports whether a session was created and not deleted yet
func (s *Server) SessionOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

func (s *Server) record(r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, r.Method+" "+r.URL.Path)
}

func (s *Server) newSession(w http.ResponseWriter, r *http.Request) {
	s.record(r)
	s.mu.Lock()
	s.open = true
	s.mu.Unlock()
	writeValue(w, map[string]interface{}{
		"sessionId": SessionID,
		"capabilities": map[string]interface{}{
			"browserName":         "fake",
			"acceptInsecureCerts": false,
		},
	})
}

func (s *Server) session(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.record(r)
		s.mu.Lock()
		open := s.open
		s.mu.Unlock()
		if !open || r.PathValue("sid") != SessionID {
			writeError(w, http.StatusNotFound, "invalid session id", "session "+r.PathValue("sid")+" does not exist")
			return
		}
		h(w, r)
	}
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.open = false
	s.mu.Unlock()
	s.page.Stop()
	writeValue(w, nil)
}

func (s *Server) navigate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid argument", err.Error())
		return
	}
	s.page.Navigate(body.URL)
	writeValue(w, nil)
}

func (s *Server) find(parentParam string, single bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Using string `json:"using"`
			Value string `json:"value"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid argument", err.Error())
			return
		}
		parent := ""
		if parentParam != "" {
			parent = r.PathValue(parentParam)
		}
		ids, err := s.page.Find(parent, entities.Locator{By: entities.By(body.Using), Value: body.Value})
		if err != nil {
			writeResult(w, nil, err)
			return
		}
		if single {
			if len(ids) == 0 {
				writeResult(w, nil, entities.ErrNoSuchElement)
				return
			}
			writeValue(w, elementJSON(ids[0]))
			return
		}
		found := make([]map[string]string, 0, len(ids))
		for _, id := range ids {
			found = append(found, elementJSON(id))
		}
		writeValue(w, found)
	}
}

func (s *Server) sendKeys(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text  string   `json:"text"`
		Value []string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid argument", err.Error())
		return
	}
	keys := body.Text
	if keys == "" {
		for _, k := range body.Value {
			keys += k
		}
	}
	writeResult(w, nil, s.page.SendKeys(r.PathValue("eid"), keys))
}

func (s *Server) executeScript(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Script string        `json:"script"`
		Args   []interface{} `json:"args"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid argument", err.Error())
		return
	}
	args := make([]interface{}, 0, len(body.Args))
	for _, arg := range body.Args {
		if m, ok := arg.(map[string]interface{}); ok {
			if id, ok := m[w3cElementKey].(string); ok {
				arg = ElementRef{ID: id}
			}
		}
		args = append(args, arg)
	}
	result, err := s.page.ExecuteScript(body.Script, args)
	if ref, ok := result.(ElementRef); ok {
		result = elementJSON(ref.ID)
	}
	writeResult(w, result, err)
}

func elementJSON(id string) map[string]string {
	return map[string]string{w3cElementKey: id, legacyElementKey: id}
}

func writeValue(w http.ResponseWriter, value interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"value": value})
}

func writeResult(w http.ResponseWriter, value interface{}, err error) {
	switch {
	case err == nil:
		writeValue(w, value)
	case errors.Is(err, entities.ErrNoSuchElement):
		writeError(w, http.StatusNotFound, "no such element", err.Error())
	case errors.Is(err, entities.ErrStaleElement):
		writeError(w, http.StatusNotFound, "stale element reference", err.Error())
	case errors.Is(err, entities.ErrNotInteractable):
		writeError(w, http.StatusBadRequest, "element not interactable", err.Error())
	case errors.Is(err, ErrInvalidSelector):
		writeError(w, http.StatusBadRequest, "invalid selector", err.Error())
	case errors.Is(err, ErrUnsupportedScript):
		writeError(w, http.StatusInternalServerError, "javascript error", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "unknown error", err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"value": map[string]interface{}{
			"error":      code,
			"message":    message,
			"stacktrace": "",
		},
	})
}
