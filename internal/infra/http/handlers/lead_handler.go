package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/eladlevy/leadgate/internal/infra/http/middleware"
	"github.com/eladlevy/leadgate/internal/usecase"
)

type LeadHandler struct {
	CreateLead  *usecase.CreateLeadUseCase
	rateLimiter *RateLimiter
}

func NewLeadHandler(createLead *usecase.CreateLeadUseCase) *LeadHandler {
	return &LeadHandler{
		CreateLead:  createLead,
		rateLimiter: NewRateLimiter(30, time.Minute), // 30 req/min per IP
	}
}

// duplicateMessages: user-facing text per duplicate reason.
var duplicateMessages = map[usecase.DuplicateReason]string{
	usecase.ReasonExactPhone:              "ליד כפול: מספר טלפון זהה כבר קיים במערכת",
	usecase.ReasonExactEmail:              "ליד כפול: כתובת אימייל זהה כבר קיימת במערכת",
	usecase.ReasonNameAndSimilarPhone:     "ליד כפול: שם זהה ומספר טלפון דומה",
	usecase.ReasonSameNameWithinHour:      "ליד כפול: ליד עם שם זהה נקלט בשעה האחרונה",
	usecase.ReasonSameNamePhoneWithinHour: "ליד כפול: שם וטלפון זהים נקלטו בשעה האחרונה",
}

type existingLeadSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type duplicateResponse struct {
	Reason       string              `json:"reason"`
	Message      string              `json:"message"`
	ExistingLead existingLeadSummary `json:"existingLead"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// HandleCreate is the synchronous lead-creation entry point, used by the
// dashboard and by non-email sources (manual entry, bulk import).
func (h *LeadHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	clientIP := getClientIP(r)
	if !h.rateLimiter.Allow(clientIP) {
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "Too many requests. Please try again later."})
		return
	}

	var input usecase.CreateLeadInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid JSON"})
		return
	}

	lead, err := h.CreateLead.Execute(r.Context(), input)
	if err != nil {
		var dup *usecase.DuplicateError
		if errors.As(err, &dup) {
			middleware.RecordDuplicate(string(dup.Reason))
			writeJSON(w, http.StatusConflict, duplicateResponse{
				Reason:  string(dup.Reason),
				Message: duplicateMessages[dup.Reason],
				ExistingLead: existingLeadSummary{
					ID:    dup.Matched.ID,
					Name:  dup.Matched.Name,
					Phone: dup.Matched.Phone,
				},
			})
			return
		}
		if usecase.IsDomainError(err) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		// TechnicalError and friends: generic failure, details stay in logs
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to create lead"})
		return
	}

	middleware.RecordLeadCreated(lead.Source)
	writeJSON(w, http.StatusCreated, lead)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    int
	window   time.Duration
}

type visitor struct {
	count     int
	lastReset time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    limit,
		window:   window,
	}

	go rl.cleanup()
	return rl
}

func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	now := time.Now()

	if !exists {
		rl.visitors[ip] = &visitor{count: 1, lastReset: now}
		return true
	}

	if now.Sub(v.lastReset) > rl.window {
		v.count = 1
		v.lastReset = now
		return true
	}

	v.count++
	return v.count <= rl.limit
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for ip, v := range rl.visitors {
			if now.Sub(v.lastReset) > rl.window*2 {
				delete(rl.visitors, ip)
			}
		}
		rl.mu.Unlock()
	}
}
