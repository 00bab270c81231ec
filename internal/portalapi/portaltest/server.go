// Package portaltest runs an in-memory stand-in for the portal REST API.
package portaltest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
)

// User is an account known to the fake server.
type User struct {
	ID       int
	Username string
	Password string
	Role     string
}

// Server serves the portal endpoints from memory. Tokens are "token-<id>".
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	users     map[string]User
	tickets   []map[string]any
	calls     map[string]int
	dashboard string
	failList  int
}

// NewServer starts a server with the given accounts.
func NewServer(users ...User) *Server {
	s := &Server{users: map[string]User{}, calls: map[string]int{}}
	for _, u := range users {
		s.users[u.Username] = u
	}
	s.dashboard = `{"metrics":{"total_complaints":0},"graph_urls":{}}`
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", s.login)
	mux.HandleFunc("/auth/register", s.register)
	mux.HandleFunc("/complaint/allcomplaints", s.list)
	mux.HandleFunc("/complaint/addcomplaint", s.create)
	mux.HandleFunc("/complaint/setsatisfaction/", s.satisfaction)
	mux.HandleFunc("/complaint/respondtocomplaint/", s.respond)
	mux.HandleFunc("/analytics/admin/dashboard", s.analytics)
	s.Server = httptest.NewServer(mux)
	return s
}

// Calls reports how often path was requested. Paths with ids are counted
// under their prefix.
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// AddTicket seeds a raw ticket record.
func (s *Server) AddTicket(record map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets = append(s.tickets, record)
}

// SetDashboard replaces the raw analytics body.
func (s *Server) SetDashboard(body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dashboard = body
}

// FailListing makes the next n list calls answer 503.
func (s *Server) FailListing(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failList = n
}

// Ticket returns the stored record with id.
func (s *Server) Ticket(id string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tickets {
		if toString(t["id"]) == id {
			return t
		}
	}
	return nil
}

func (s *Server) count(prefix string) {
	s.mu.Lock()
	s.calls[prefix]++
	s.mu.Unlock()
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	s.count("/auth/login")
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	s.mu.Lock()
	u, ok := s.users[req.Username]
	s.mu.Unlock()
	if !ok || u.Password != req.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id": u.ID, "username": u.Username, "role": u.Role, "access_token": token(u.ID),
	})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	s.count("/auth/register")
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.users[req.Username]; taken {
		writeJSON(w, http.StatusConflict, map[string]string{"message": "Username already exists"})
		return
	}
	s.users[req.Username] = User{ID: len(s.users) + 100, Username: req.Username, Password: req.Password, Role: "client"}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "created"})
}

func (s *Server) caller(r *http.Request) (User, bool) {
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if token(u.ID) == raw {
			return u, true
		}
	}
	return User{}, false
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	s.count("/complaint/allcomplaints")
	u, ok := s.caller(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Token has expired"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failList > 0 {
		s.failList--
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"message": "Service unavailable"})
		return
	}
	out := []map[string]any{}
	for _, t := range s.tickets {
		if u.Role == "client" && toString(t["user_id"]) != strconv.Itoa(u.ID) {
			continue
		}
		out = append(out, t)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	s.count("/complaint/addcomplaint")
	u, ok := s.caller(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Token has expired"})
		return
	}
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	s.mu.Lock()
	defer s.mu.Unlock()
	record := map[string]any{
		"id":             "T" + strconv.Itoa(len(s.tickets)+1),
		"title":          req.Title,
		"description":    req.Description,
		"category":       "account",
		"sub_category":   "login",
		"ai_response":    "Try resetting your password.",
		"admin_response": "PENDING",
		"user_id":        u.ID,
	}
	s.tickets = append(s.tickets, record)
	writeJSON(w, http.StatusCreated, record)
}

func (s *Server) satisfaction(w http.ResponseWriter, r *http.Request) {
	s.count("/complaint/setsatisfaction/")
	if _, ok := s.caller(r); !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Token has expired"})
		return
	}
	var req struct {
		Satisfaction string `json:"satisfaction"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	id := strings.TrimPrefix(r.URL.Path, "/complaint/setsatisfaction/")
	if t := s.Ticket(id); t != nil {
		s.mu.Lock()
		t["satisfaction"] = req.Satisfaction
		s.mu.Unlock()
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request) {
	s.count("/complaint/respondtocomplaint/")
	u, ok := s.caller(r)
	if !ok || u.Role == "client" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Token has expired"})
		return
	}
	var req struct {
		Response string `json:"department_response"`
		Eval     string `json:"admin_eval_on_ai_response"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	id := strings.TrimPrefix(r.URL.Path, "/complaint/respondtocomplaint/")
	t := s.Ticket(id)
	if t == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Complaint not found"})
		return
	}
	s.mu.Lock()
	t["admin_response"] = req.Response
	t["admin_eval_on_ai_response"] = req.Eval
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
}

func (s *Server) analytics(w http.ResponseWriter, r *http.Request) {
	s.count("/analytics/admin/dashboard")
	if _, ok := s.caller(r); !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Token has expired"})
		return
	}
	s.mu.Lock()
	body := s.dashboard
	s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func token(id int) string {
	return "token-" + strconv.Itoa(id)
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return ""
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
