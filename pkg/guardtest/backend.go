package guardtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"git.sr.ht/~jakintosh/craftcart-admin/pkg/client"
	"git.sr.ht/~jakintosh/craftcart-admin/pkg/session"
	"git.sr.ht/~jakintosh/craftcart-admin/pkg/tokens"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type account struct {
	user   session.User
	secret []byte
}

// Backend is an in memory stand-in for the Craft-Cart REST API. It issues
// signed credentials at login and, unlike the console, verifies them on
// every authenticated call.
type Backend struct {
	issuer       *tokens.Issuer
	lifetime     time.Duration
	passwordCost int

	mu          sync.Mutex
	accounts    map[string]*account
	records     map[string][]client.Record
	resetTokens map[string]string
}

func NewBackend(issuer *tokens.Issuer, lifetime time.Duration) *Backend {
	b := &Backend{
		issuer:       issuer,
		lifetime:     lifetime,
		passwordCost: bcrypt.MinCost,
		accounts:     make(map[string]*account),
		records:      make(map[string][]client.Record),
		resetTokens:  make(map[string]string),
	}
	for _, resource := range client.Resources {
		b.records[resource] = []client.Record{
			{"_id": resource + "-1", "name": resource + " one"},
			{"_id": resource + "-2", "name": resource + " two"},
		}
	}
	return b
}

// SetPasswordCost sets the bcrypt cost used for new and reset passwords.
func (b *Backend) SetPasswordCost(cost int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.passwordCost = cost
}

func (b *Backend) AddAccount(name, email, password, role string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addAccountLocked(name, email, password, role)
}

func (b *Backend) addAccountLocked(name, email, password, role string) error {
	if _, exists := b.accounts[email]; exists {
		return fmt.Errorf("account %s already exists", email)
	}
	secret, err := bcrypt.GenerateFromPassword([]byte(password), b.passwordCost)
	if err != nil {
		return fmt.Errorf("hash password for %s: %w", email, err)
	}
	b.accounts[email] = &account{
		user: session.User{
			ID:    uuid.NewString(),
			Name:  name,
			Email: email,
			Role:  role,
		},
		secret: secret,
	}
	return nil
}

func (b *Backend) SetRecords(resource string, records []client.Record) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records[resource] = records
}

func (b *Backend) Records(resource string) []client.Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]client.Record(nil), b.records[resource]...)
}

// ResetToken returns the pending password reset token for email, if any.
func (b *Backend) ResetToken(email string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	for token, owner := range b.resetTokens {
		if owner == email {
			return token
		}
	}
	return ""
}

func (b *Backend) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", b.login)
	mux.HandleFunc("POST /api/auth/signup", b.signup)
	mux.HandleFunc("POST /api/auth/forgot-password", b.forgotPassword)
	mux.HandleFunc("POST /api/auth/reset-password/{token}", b.resetPassword)
	mux.HandleFunc("GET /api/auth/me", b.me)
	mux.HandleFunc("GET /api/{resource}", b.list)
	mux.HandleFunc("DELETE /api/{resource}/{id}", b.delete)
	return mux
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var req client.LoginRequest
	if ok := decodeRequest(&req, w, r); !ok {
		return
	}

	b.mu.Lock()
	acct, ok := b.accounts[req.Email]
	b.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(acct.secret, []byte(req.Password)) != nil {
		writeMessage(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	credential, _, err := b.issuer.Issue(acct.user.ID, acct.user.Role, b.lifetime)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "couldn't issue credential")
		return
	}
	returnJson(client.LoginResponse{Token: credential, User: acct.user}, w)
}

func (b *Backend) signup(w http.ResponseWriter, r *http.Request) {
	var req client.SignupRequest
	if ok := decodeRequest(&req, w, r); !ok {
		return
	}
	if req.Email == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "email and password are required")
		return
	}

	b.mu.Lock()
	err := b.addAccountLocked(req.Name, req.Email, req.Password, "user")
	b.mu.Unlock()
	if err != nil {
		writeMessage(w, http.StatusConflict, "account already exists")
		return
	}
	writeMessage(w, http.StatusCreated, "account created")
}

func (b *Backend) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req client.ForgotPasswordRequest
	if ok := decodeRequest(&req, w, r); !ok {
		return
	}

	b.mu.Lock()
	if _, ok := b.accounts[req.Email]; ok {
		b.resetTokens[uuid.NewString()] = req.Email
	}
	b.mu.Unlock()

	// same answer whether or not the account exists
	writeMessage(w, http.StatusOK, "if the account exists, a reset link has been sent")
}

func (b *Backend) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req client.ResetPasswordRequest
	if ok := decodeRequest(&req, w, r); !ok {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	token := r.PathValue("token")
	email, ok := b.resetTokens[token]
	if !ok || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "invalid reset token")
		return
	}
	secret, err := bcrypt.GenerateFromPassword([]byte(req.Password), b.passwordCost)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "couldn't reset password")
		return
	}
	b.accounts[email].secret = secret
	delete(b.resetTokens, token)
	writeMessage(w, http.StatusOK, "password updated")
}

func (b *Backend) me(w http.ResponseWriter, r *http.Request) {
	claims, ok := b.authenticate(w, r)
	if !ok {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, acct := range b.accounts {
		if acct.user.ID == claims.Subject {
			returnJson(acct.user, w)
			return
		}
	}
	writeMessage(w, http.StatusUnauthorized, "account no longer exists")
}

func (b *Backend) list(w http.ResponseWriter, r *http.Request) {
	if _, ok := b.authorizeAdmin(w, r); !ok {
		return
	}

	resource := r.PathValue("resource")
	b.mu.Lock()
	records, ok := b.records[resource]
	b.mu.Unlock()
	if !ok {
		writeMessage(w, http.StatusNotFound, "unknown resource")
		return
	}
	if records == nil {
		records = []client.Record{}
	}
	returnJson(records, w)
}

func (b *Backend) delete(w http.ResponseWriter, r *http.Request) {
	if _, ok := b.authorizeAdmin(w, r); !ok {
		return
	}

	resource := r.PathValue("resource")
	id := r.PathValue("id")

	b.mu.Lock()
	defer b.mu.Unlock()
	records := b.records[resource]
	for i, record := range records {
		if record.ID() == id {
			b.records[resource] = append(records[:i:i], records[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeMessage(w, http.StatusNotFound, "record not found")
}

func (b *Backend) authenticate(w http.ResponseWriter, r *http.Request) (*tokens.IssuedClaims, bool) {
	credential, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || credential == "" {
		writeMessage(w, http.StatusUnauthorized, "missing credential")
		return nil, false
	}
	claims, err := b.issuer.Verify(credential)
	if err != nil {
		writeMessage(w, http.StatusUnauthorized, "invalid credential")
		return nil, false
	}
	return claims, true
}

func (b *Backend) authorizeAdmin(w http.ResponseWriter, r *http.Request) (*tokens.IssuedClaims, bool) {
	claims, ok := b.authenticate(w, r)
	if !ok {
		return nil, false
	}
	if claims.Role != "admin" {
		writeMessage(w, http.StatusForbidden, "admin role required")
		return nil, false
	}
	return claims, true
}

func decodeRequest[T any](req *T, w http.ResponseWriter, r *http.Request) bool {
	err := json.NewDecoder(r.Body).Decode(req)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "bad json request")
		return false
	}
	return true
}

func returnJson(data any, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(data)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(client.MessageResponse{Message: message})
}
