package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/qadhya-labs/qanun-core/internal/core/domain"
	"github.com/qadhya-labs/qanun-core/internal/core/ports/driven"
	"github.com/qadhya-labs/qanun-core/internal/core/ports/driving"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Returns the readiness status of the API (checks database and queue connections)
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Failure      503  {object}  ErrorResponse  "A dependency is unreachable"
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	if s.redisClient != nil {
		if err := s.redisClient.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "redis unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// Auth endpoints

// handleLogin godoc
// @Summary      User login
// @Description  Authenticate with email and password to receive a JWT token
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request  body      domain.LoginRequest  true  "Login credentials"
// @Success      200      {object}  domain.LoginResponse
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Failure      401      {object}  ErrorResponse  "Invalid credentials or account disabled"
// @Failure      500      {object}  ErrorResponse  "Internal server error"
// @Router       /auth/login [post]
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.authService.Authenticate(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "invalid credentials")
		case errors.Is(err, domain.ErrUnauthorized):
			writeError(w, http.StatusUnauthorized, "account disabled")
		default:
			writeError(w, http.StatusInternalServerError, "authentication failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleRefresh godoc
// @Summary      Refresh token
// @Description  Exchange a refresh token for a new JWT token
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request  body      domain.RefreshRequest  true  "Refresh token"
// @Success      200      {object}  domain.LoginResponse
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Failure      401      {object}  ErrorResponse  "Invalid refresh token"
// @Router       /auth/refresh [post]
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req domain.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.authService.RefreshToken(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleLogout godoc
// @Summary      Logout user
// @Description  Invalidate the current session token
// @Tags         Authentication
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  StatusResponse
// @Router       /auth/logout [post]
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := extractBearerToken(r)
	if token == "" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	_ = s.authService.Logout(r.Context(), token)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Setup endpoint (no auth required, one-time use)

// handleSetup godoc
// @Summary      Initial setup
// @Description  Create the initial admin user. This endpoint can only be called once when no users exist.
// @Tags         Setup
// @Accept       json
// @Produce      json
// @Param        request  body      driving.SetupRequest  true  "Admin user details"
// @Success      201      {object}  driving.SetupResponse
// @Failure      400      {object}  ErrorResponse  "Invalid input"
// @Failure      403      {object}  ErrorResponse  "Setup already complete"
// @Failure      500      {object}  ErrorResponse  "Setup failed"
// @Router       /setup [post]
func (s *Server) handleSetup(w http.ResponseWriter, r *http.Request) {
	var req driving.SetupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.userService.Setup(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "email, password, and name are required")
		case errors.Is(err, domain.ErrForbidden):
			writeError(w, http.StatusForbidden, "setup already complete")
		default:
			writeError(w, http.StatusInternalServerError, "setup failed")
		}
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// User endpoints

// handleGetMe godoc
// @Summary      Get current user
// @Description  Get the currently authenticated user's profile
// @Tags         Users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.UserSummary
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      404  {object}  ErrorResponse  "User not found"
// @Router       /me [get]
func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := s.userService.Get(r.Context(), authCtx.UserID)
	if err != nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	writeJSON(w, http.StatusOK, user.ToSummary())
}

// handleChangePassword godoc
// @Summary      Change password
// @Description  Change the currently authenticated user's password
// @Tags         Users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      domain.ChangePasswordRequest  true  "Current and new password"
// @Success      200      {object}  StatusResponse
// @Failure      400      {object}  ErrorResponse  "Invalid input"
// @Failure      401      {object}  ErrorResponse  "Current password is wrong"
// @Router       /me/password [post]
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req domain.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.authService.ChangePassword(r.Context(), authCtx.UserID, req); err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "current password is wrong")
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "invalid new password")
		default:
			writeError(w, http.StatusInternalServerError, "failed to change password")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListUsers godoc
// @Summary      List all users
// @Description  Get a list of all users (admin only)
// @Tags         Users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.UserSummary
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      403  {object}  ErrorResponse  "Forbidden - admin only"
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /users [get]
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.userService.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}

	summaries := make([]*domain.UserSummary, len(users))
	for i, u := range users {
		summaries[i] = u.ToSummary()
	}

	writeJSON(w, http.StatusOK, summaries)
}

// handleCreateUser godoc
// @Summary      Create user
// @Description  Create a new user (admin only)
// @Tags         Users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      driving.CreateUserRequest  true  "User details"
// @Success      201      {object}  domain.UserSummary
// @Failure      400      {object}  ErrorResponse  "Invalid input"
// @Failure      401      {object}  ErrorResponse  "Unauthorized"
// @Failure      403      {object}  ErrorResponse  "Forbidden - admin only"
// @Failure      409      {object}  ErrorResponse  "User already exists"
// @Failure      500      {object}  ErrorResponse  "Internal server error"
// @Router       /users [post]
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req driving.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.userService.Create(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAlreadyExists):
			writeError(w, http.StatusConflict, "user already exists")
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "invalid input")
		default:
			writeError(w, http.StatusInternalServerError, "failed to create user")
		}
		return
	}

	writeJSON(w, http.StatusCreated, user.ToSummary())
}

// handleDeleteUser godoc
// @Summary      Delete user
// @Description  Delete a user by ID (admin only)
// @Tags         Users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  StatusResponse
// @Failure      400  {object}  ErrorResponse  "Missing user ID"
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      403  {object}  ErrorResponse  "Forbidden - admin only"
// @Failure      404  {object}  ErrorResponse  "User not found"
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /users/{id} [delete]
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing user id")
		return
	}

	if err := s.userService.Delete(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "user not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to delete user")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Web source endpoints

// handleListSources godoc
// @Summary      List web sources
// @Description  Get all configured crawl sources
// @Tags         Sources
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.WebSource
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /sources [get]
func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.webSourceService.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list sources")
		return
	}

	writeJSON(w, http.StatusOK, sources)
}

// handleCreateSource godoc
// @Summary      Create web source
// @Description  Register a new crawl source (admin only)
// @Tags         Sources
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      driving.CreateWebSourceRequest  true  "Source details"
// @Success      201      {object}  domain.WebSource
// @Failure      400      {object}  ErrorResponse  "Invalid input"
// @Failure      409      {object}  ErrorResponse  "Host already registered"
// @Router       /sources [post]
func (s *Server) handleCreateSource(w http.ResponseWriter, r *http.Request) {
	var req driving.CreateWebSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	source, err := s.webSourceService.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, err, "failed to create source")
		return
	}

	writeJSON(w, http.StatusCreated, source)
}

// handleGetSource godoc
// @Summary      Get web source
// @Description  Get a crawl source by ID
// @Tags         Sources
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Source ID"
// @Success      200  {object}  domain.WebSource
// @Failure      404  {object}  ErrorResponse  "Source not found"
// @Router       /sources/{id} [get]
func (s *Server) handleGetSource(w http.ResponseWriter, r *http.Request) {
	source, err := s.webSourceService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, "failed to get source")
		return
	}

	writeJSON(w, http.StatusOK, source)
}

// handleUpdateSource godoc
// @Summary      Update web source
// @Description  Update a crawl source (admin only)
// @Tags         Sources
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string  true  "Source ID"
// @Param        request  body      driving.UpdateWebSourceRequest  true  "Fields to update"
// @Success      200      {object}  domain.WebSource
// @Failure      400      {object}  ErrorResponse  "Invalid input"
// @Failure      404      {object}  ErrorResponse  "Source not found"
// @Failure      409      {object}  ErrorResponse  "Host already registered"
// @Router       /sources/{id} [put]
func (s *Server) handleUpdateSource(w http.ResponseWriter, r *http.Request) {
	var req driving.UpdateWebSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	source, err := s.webSourceService.Update(r.Context(), r.PathValue("id"), req)
	if err != nil {
		writeServiceError(w, err, "failed to update source")
		return
	}

	writeJSON(w, http.StatusOK, source)
}

// handleDeleteSource godoc
// @Summary      Delete web source
// @Description  Remove a crawl source (admin only). Pages crawled from it are kept.
// @Tags         Sources
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Source ID"
// @Success      200  {object}  StatusResponse
// @Failure      404  {object}  ErrorResponse  "Source not found"
// @Router       /sources/{id} [delete]
func (s *Server) handleDeleteSource(w http.ResponseWriter, r *http.Request) {
	if err := s.webSourceService.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err, "failed to delete source")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Classification endpoints

type pageBatchRequest struct {
	PageIDs []string `json:"page_ids"`
}

// handleClassifyBatch godoc
// @Summary      Classify pages
// @Description  Run the classification rules against a batch of pages
// @Tags         Classification
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      pageBatchRequest  true  "Page IDs"
// @Success      200      {object}  driving.ClassifyReport
// @Failure      400      {object}  ErrorResponse  "Invalid input"
// @Router       /classify [post]
func (s *Server) handleClassifyBatch(w http.ResponseWriter, r *http.Request) {
	var req pageBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.PageIDs) == 0 {
		writeError(w, http.StatusBadRequest, "page_ids is required")
		return
	}

	report, err := s.classification.ClassifyBatch(r.Context(), req.PageIDs)
	if err != nil {
		writeServiceError(w, err, "classification failed")
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// handleClassifyPage godoc
// @Summary      Classify a page
// @Description  Run the classification rules against a single page. Returns 204 when no rule matches.
// @Tags         Classification
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Page ID"
// @Success      200  {object}  domain.Classification
// @Success      204  "No rule matched"
// @Failure      404  {object}  ErrorResponse  "Page not found"
// @Router       /pages/{id}/classify [post]
func (s *Server) handleClassifyPage(w http.ResponseWriter, r *http.Request) {
	classification, err := s.classification.ClassifyPage(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, "classification failed")
		return
	}

	if classification == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, classification)
}

// handleRecordCorrection godoc
// @Summary      Record a correction
// @Description  Register a human correction of a classification. Corrections feed rule suggestion.
// @Tags         Classification
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      domain.Correction  true  "Correction details"
// @Success      201      {object}  StatusResponse
// @Failure      400      {object}  ErrorResponse  "Invalid input"
// @Router       /corrections [post]
func (s *Server) handleRecordCorrection(w http.ResponseWriter, r *http.Request) {
	var correction domain.Correction
	if err := json.NewDecoder(r.Body).Decode(&correction); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.classification.RecordCorrection(r.Context(), &correction); err != nil {
		writeServiceError(w, err, "failed to record correction")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"status": "recorded"})
}

// Rule endpoints

// handleListRules godoc
// @Summary      List classification rules
// @Description  List rules, optionally scoped to a web source
// @Tags         Rules
// @Produce      json
// @Security     BearerAuth
// @Param        web_source_id  query     string  false  "Web source ID"
// @Success      200  {array}   domain.ClassificationRule
// @Router       /rules [get]
func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.classification.ListRules(r.Context(), r.URL.Query().Get("web_source_id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list rules")
		return
	}

	writeJSON(w, http.StatusOK, rules)
}

// handleSaveRule godoc
// @Summary      Save classification rule
// @Description  Create or update a classification rule (admin only)
// @Tags         Rules
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      domain.ClassificationRule  true  "Rule definition"
// @Success      201      {object}  domain.ClassificationRule
// @Failure      400      {object}  ErrorResponse  "Invalid rule or condition"
// @Router       /rules [post]
func (s *Server) handleSaveRule(w http.ResponseWriter, r *http.Request) {
	var rule domain.ClassificationRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.classification.SaveRule(r.Context(), &rule); err != nil {
		writeServiceError(w, err, "failed to save rule")
		return
	}

	writeJSON(w, http.StatusCreated, &rule)
}

// handleGetRule godoc
// @Summary      Get classification rule
// @Tags         Rules
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Rule ID"
// @Success      200  {object}  domain.ClassificationRule
// @Failure      404  {object}  ErrorResponse  "Rule not found"
// @Router       /rules/{id} [get]
func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	rule, err := s.classification.GetRule(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, "failed to get rule")
		return
	}

	writeJSON(w, http.StatusOK, rule)
}

// handleDeleteRule godoc
// @Summary      Delete classification rule
// @Description  Remove a rule (admin only)
// @Tags         Rules
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Rule ID"
// @Success      200  {object}  StatusResponse
// @Failure      404  {object}  ErrorResponse  "Rule not found"
// @Router       /rules/{id} [delete]
func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	if err := s.classification.DeleteRule(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err, "failed to delete rule")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleListSuggestions godoc
// @Summary      List suggested rules
// @Description  List rules derived from corrections, awaiting activation
// @Tags         Rules
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.ClassificationRule
// @Router       /rules/suggestions [get]
func (s *Server) handleListSuggestions(w http.ResponseWriter, r *http.Request) {
	suggestions, err := s.classification.ListSuggestions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list suggestions")
		return
	}

	writeJSON(w, http.StatusOK, suggestions)
}

type suggestRulesRequest struct {
	WebSourceID string `json:"web_source_id"`
}

// handleSuggestRules godoc
// @Summary      Suggest rules
// @Description  Derive candidate rules from accumulated corrections (admin only). An empty web_source_id covers all sources.
// @Tags         Rules
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      suggestRulesRequest  true  "Scope"
// @Success      200      {array}   domain.ClassificationRule
// @Router       /rules/suggest [post]
func (s *Server) handleSuggestRules(w http.ResponseWriter, r *http.Request) {
	var req suggestRulesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	suggestions, err := s.classification.SuggestRules(r.Context(), req.WebSourceID)
	if err != nil {
		writeServiceError(w, err, "rule suggestion failed")
		return
	}

	writeJSON(w, http.StatusOK, suggestions)
}

// handleActivateSuggestion godoc
// @Summary      Activate a suggested rule
// @Description  Enable a suggested rule so it participates in classification (admin only)
// @Tags         Rules
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Rule ID"
// @Success      200  {object}  StatusResponse
// @Failure      404  {object}  ErrorResponse  "Rule not found"
// @Router       /rules/{id}/activate [post]
func (s *Server) handleActivateSuggestion(w http.ResponseWriter, r *http.Request) {
	if err := s.classification.ActivateSuggestion(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err, "failed to activate suggestion")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "activated"})
}

// Extraction endpoints

type extractBatchRequest struct {
	PageIDs []string `json:"page_ids"`
	driving.ExtractOptions
}

// handleExtractBatch godoc
// @Summary      Extract metadata
// @Description  Run metadata extraction on a batch of pages. Strategy flags select regex-only, LLM-only or the hybrid default; force_reextract writes a new version for pages that already have one.
// @Tags         Extraction
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      extractBatchRequest  true  "Page IDs and strategy"
// @Success      200      {object}  driving.ExtractReport
// @Failure      400      {object}  ErrorResponse  "Invalid input"
// @Router       /extract [post]
func (s *Server) handleExtractBatch(w http.ResponseWriter, r *http.Request) {
	var req extractBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.PageIDs) == 0 {
		writeError(w, http.StatusBadRequest, "page_ids is required")
		return
	}

	report, err := s.extraction.ExtractBatch(r.Context(), req.PageIDs, req.ExtractOptions)
	if err != nil {
		writeServiceError(w, err, "extraction failed")
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// handleExtractPage godoc
// @Summary      Extract page metadata
// @Description  Run metadata extraction on a single page and persist a new version
// @Tags         Extraction
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                  true   "Page ID"
// @Param        request  body      driving.ExtractOptions  false  "Strategy flags"
// @Success      200  {object}  domain.Metadata
// @Failure      404  {object}  ErrorResponse  "Page not found"
// @Failure      502  {object}  ErrorResponse  "Collaborator unavailable"
// @Router       /pages/{id}/extract [post]
func (s *Server) handleExtractPage(w http.ResponseWriter, r *http.Request) {
	// An empty body means the hybrid default.
	var opts driving.ExtractOptions
	_ = json.NewDecoder(r.Body).Decode(&opts)

	metadata, err := s.extraction.ExtractPage(r.Context(), r.PathValue("id"), opts)
	if err != nil {
		writeServiceError(w, err, "extraction failed")
		return
	}

	writeJSON(w, http.StatusOK, metadata)
}

// handleGetMetadata godoc
// @Summary      Get page metadata
// @Description  Get the latest metadata version for a page
// @Tags         Extraction
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Page ID"
// @Success      200  {object}  domain.Metadata
// @Failure      404  {object}  ErrorResponse  "No metadata for page"
// @Router       /pages/{id}/metadata [get]
func (s *Server) handleGetMetadata(w http.ResponseWriter, r *http.Request) {
	metadata, err := s.extraction.GetMetadata(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, "failed to get metadata")
		return
	}

	writeJSON(w, http.StatusOK, metadata)
}

// handleListMetadataVersions godoc
// @Summary      List metadata versions
// @Description  List all metadata versions for a page, newest first
// @Tags         Extraction
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Page ID"
// @Success      200  {array}   domain.Metadata
// @Router       /pages/{id}/metadata/versions [get]
func (s *Server) handleListMetadataVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := s.extraction.ListVersions(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, "failed to list metadata versions")
		return
	}

	writeJSON(w, http.StatusOK, versions)
}

// Consolidation endpoints

// handleConsolidateBatch godoc
// @Summary      Consolidate pages
// @Description  Link a batch of crawled pages to their canonical documents
// @Tags         Documents
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      pageBatchRequest  true  "Page IDs"
// @Success      200      {object}  driving.ConsolidationResult
// @Failure      400      {object}  ErrorResponse  "Invalid input"
// @Router       /consolidate [post]
func (s *Server) handleConsolidateBatch(w http.ResponseWriter, r *http.Request) {
	var req pageBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.PageIDs) == 0 {
		writeError(w, http.StatusBadRequest, "page_ids is required")
		return
	}

	result, err := s.consolidation.ConsolidateBatch(r.Context(), req.PageIDs)
	if err != nil {
		writeServiceError(w, err, "consolidation failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleListDocuments godoc
// @Summary      List documents
// @Description  List documents, optionally filtered by pipeline stage
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Param        stage   query     string  false  "Pipeline stage"
// @Param        limit   query     int     false  "Max results (default 50)"
// @Param        offset  query     int     false  "Pagination offset"
// @Success      200  {array}   domain.Document
// @Failure      400  {object}  ErrorResponse  "Unknown stage"
// @Router       /documents [get]
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	stage := domain.PipelineStage(r.URL.Query().Get("stage"))
	if stage != "" && !stage.IsValid() {
		writeError(w, http.StatusBadRequest, "unknown pipeline stage")
		return
	}

	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	docs, err := s.consolidation.ListDocuments(r.Context(), stage, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list documents")
		return
	}

	writeJSON(w, http.StatusOK, docs)
}

// handleGetDocument godoc
// @Summary      Get document
// @Description  Get a document by ID with its linked pages
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  domain.DocumentWithPages
// @Failure      404  {object}  ErrorResponse  "Document not found"
// @Router       /documents/{id} [get]
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.consolidation.GetDocument(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, "failed to get document")
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

// handleRebuildStructure godoc
// @Summary      Rebuild document structure
// @Description  Recompute a document's structure tree and consolidated text from its linked pages
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  domain.DocumentStructure
// @Failure      404  {object}  ErrorResponse  "Document not found"
// @Router       /documents/{id}/rebuild [post]
func (s *Server) handleRebuildStructure(w http.ResponseWriter, r *http.Request) {
	structure, err := s.consolidation.RebuildStructure(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, "rebuild failed")
		return
	}

	writeJSON(w, http.StatusOK, structure)
}

// handleApproveDocument godoc
// @Summary      Approve consolidation
// @Description  Mark a document's consolidation as verified by a reviewer
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  StatusResponse
// @Failure      404  {object}  ErrorResponse  "Document not found"
// @Router       /documents/{id}/approve [post]
func (s *Server) handleApproveDocument(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if err := s.consolidation.Approve(r.Context(), r.PathValue("id"), authCtx.Email); err != nil {
		writeServiceError(w, err, "approval failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "approved"})
}

// handleRevokeDocument godoc
// @Summary      Revoke consolidation approval
// @Description  Clear a document's verified flag
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  StatusResponse
// @Failure      404  {object}  ErrorResponse  "Document not found"
// @Router       /documents/{id}/revoke [post]
func (s *Server) handleRevokeDocument(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if err := s.consolidation.Revoke(r.Context(), r.PathValue("id"), authCtx.Email); err != nil {
		writeServiceError(w, err, "revocation failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

// Pipeline endpoints

// handleCheckGate godoc
// @Summary      Check stage gate
// @Description  Report whether a document may leave its current pipeline stage
// @Tags         Pipeline
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  domain.GateResult
// @Failure      404  {object}  ErrorResponse  "Document not found"
// @Router       /documents/{id}/gate [get]
func (s *Server) handleCheckGate(w http.ResponseWriter, r *http.Request) {
	result, err := s.pipeline.CheckGate(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, "gate check failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleAdvance godoc
// @Summary      Advance document
// @Description  Move a document one stage forward if its gate passes
// @Tags         Pipeline
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  domain.AdvanceResult
// @Failure      404  {object}  ErrorResponse  "Document not found"
// @Failure      409  {object}  ErrorResponse  "Gate failed or invalid transition"
// @Router       /documents/{id}/advance [post]
func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	result, err := s.pipeline.Advance(r.Context(), r.PathValue("id"), authCtx.Email)
	if err != nil {
		writeServiceError(w, err, "advance failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleAutoAdvance godoc
// @Summary      Auto-advance document
// @Description  Move a document forward through every passing gate
// @Tags         Pipeline
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  domain.AdvanceResult
// @Failure      404  {object}  ErrorResponse  "Document not found"
// @Router       /documents/{id}/auto-advance [post]
func (s *Server) handleAutoAdvance(w http.ResponseWriter, r *http.Request) {
	result, err := s.pipeline.AutoAdvance(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, "auto-advance failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type overrideRequest struct {
	Stage  string `json:"stage"`
	Reason string `json:"reason"`
}

// handleOverride godoc
// @Summary      Override document stage
// @Description  Force a document to a stage regardless of gates (admin only). A reason is required.
// @Tags         Pipeline
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string           true  "Document ID"
// @Param        request  body      overrideRequest  true  "Target stage and reason"
// @Success      200      {object}  StatusResponse
// @Failure      400      {object}  ErrorResponse  "Unknown stage or missing reason"
// @Failure      404      {object}  ErrorResponse  "Document not found"
// @Router       /documents/{id}/override [post]
func (s *Server) handleOverride(w http.ResponseWriter, r *http.Request) {
	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	stage := domain.PipelineStage(req.Stage)
	if !stage.IsValid() {
		writeError(w, http.StatusBadRequest, "unknown pipeline stage")
		return
	}

	authCtx := GetAuthContext(r.Context())
	if err := s.pipeline.Override(r.Context(), r.PathValue("id"), stage, authCtx.Email, req.Reason); err != nil {
		writeServiceError(w, err, "override failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "overridden"})
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// handleReject godoc
// @Summary      Reject document
// @Description  Send a document back to the previous stage and flag it for review
// @Tags         Pipeline
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string         true  "Document ID"
// @Param        request  body      rejectRequest  true  "Reason"
// @Success      200      {object}  StatusResponse
// @Failure      400      {object}  ErrorResponse  "Missing reason"
// @Failure      404      {object}  ErrorResponse  "Document not found"
// @Failure      409      {object}  ErrorResponse  "Document is at the first stage"
// @Router       /documents/{id}/reject [post]
func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	var req rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	authCtx := GetAuthContext(r.Context())
	if err := s.pipeline.Reject(r.Context(), r.PathValue("id"), authCtx.Email, req.Reason); err != nil {
		writeServiceError(w, err, "rejection failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

type bulkAdvanceRequest struct {
	DocumentIDs []string `json:"document_ids"`
}

// handleBulkAdvance godoc
// @Summary      Bulk advance
// @Description  Advance up to 100 documents, reporting per-item outcomes
// @Tags         Pipeline
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      bulkAdvanceRequest  true  "Document IDs"
// @Success      200      {object}  domain.BatchResult
// @Failure      400      {object}  ErrorResponse  "Empty batch or over the 100 document cap"
// @Router       /documents/bulk-advance [post]
func (s *Server) handleBulkAdvance(w http.ResponseWriter, r *http.Request) {
	var req bulkAdvanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	authCtx := GetAuthContext(r.Context())
	result, err := s.pipeline.BulkAdvance(r.Context(), req.DocumentIDs, authCtx.Email)
	if err != nil {
		writeServiceError(w, err, "bulk advance failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type bulkRejectRequest struct {
	DocumentIDs []string `json:"document_ids"`
	Reason      string   `json:"reason"`
}

// handleBulkReject godoc
// @Summary      Bulk reject
// @Description  Reject up to 100 documents, reporting per-item outcomes
// @Tags         Pipeline
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      bulkRejectRequest  true  "Document IDs and reason"
// @Success      200      {object}  domain.BatchResult
// @Failure      400      {object}  ErrorResponse  "Empty batch, missing reason, or over the 100 document cap"
// @Router       /documents/bulk-reject [post]
func (s *Server) handleBulkReject(w http.ResponseWriter, r *http.Request) {
	var req bulkRejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	authCtx := GetAuthContext(r.Context())
	result, err := s.pipeline.BulkReject(r.Context(), req.DocumentIDs, authCtx.Email, req.Reason)
	if err != nil {
		writeServiceError(w, err, "bulk reject failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type sweepRequest struct {
	DryRun bool `json:"dry_run"`
}

// handleSweep godoc
// @Summary      Run advance sweep
// @Description  Auto-advance every document below the terminal stage (admin only). With dry_run, gates are evaluated but nothing is persisted.
// @Tags         Pipeline
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      sweepRequest  true  "Sweep options"
// @Success      200      {object}  driving.SweepReport
// @Failure      409      {object}  ErrorResponse  "A sweep is already running"
// @Router       /pipeline/sweep [post]
func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	var req sweepRequest
	if r.Body != nil {
		// An empty body means a live sweep
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	report, err := s.pipeline.Sweep(r.Context(), req.DryRun)
	if err != nil {
		writeServiceError(w, err, "sweep failed")
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// handleHistory godoc
// @Summary      Document history
// @Description  List the recorded stage transitions for a document, newest first
// @Tags         Pipeline
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Document ID"
// @Success      200  {array}   domain.StageTransition
// @Router       /documents/{id}/history [get]
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	transitions, err := s.pipeline.History(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, "failed to get history")
		return
	}

	writeJSON(w, http.StatusOK, transitions)
}

// Relation endpoints

// handleDetectForDocument godoc
// @Summary      Detect relations for a document
// @Description  Compare a document against its candidates and record any relations found
// @Tags         Relations
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  driving.DetectReport
// @Failure      404  {object}  ErrorResponse  "Document not found"
// @Failure      502  {object}  ErrorResponse  "Collaborator unavailable"
// @Router       /documents/{id}/relations/detect [post]
func (s *Server) handleDetectForDocument(w http.ResponseWriter, r *http.Request) {
	report, err := s.relations.DetectForDocument(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, "relation detection failed")
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// handleDetectBatch godoc
// @Summary      Detect relations for a batch
// @Description  Run relation detection for a batch of documents
// @Tags         Relations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      bulkAdvanceRequest  true  "Document IDs"
// @Success      200      {object}  driving.DetectReport
// @Failure      400      {object}  ErrorResponse  "Invalid input"
// @Router       /relations/detect [post]
func (s *Server) handleDetectBatch(w http.ResponseWriter, r *http.Request) {
	var req bulkAdvanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.DocumentIDs) == 0 {
		writeError(w, http.StatusBadRequest, "document_ids is required")
		return
	}

	report, err := s.relations.DetectBatch(r.Context(), req.DocumentIDs)
	if err != nil {
		writeServiceError(w, err, "relation detection failed")
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// handleListRelations godoc
// @Summary      List relations
// @Description  List relations, optionally filtered by status and type
// @Tags         Relations
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "Relation status"  Enums(pending, confirmed, dismissed, resolved)
// @Param        type    query     string  false  "Relation type"    Enums(duplicate, near_duplicate, contradiction)
// @Param        limit   query     int     false  "Max results (default 50)"
// @Param        offset  query     int     false  "Pagination offset"
// @Success      200  {array}   domain.Relation
// @Router       /relations [get]
func (s *Server) handleListRelations(w http.ResponseWriter, r *http.Request) {
	status := domain.RelationStatus(r.URL.Query().Get("status"))
	relType := domain.RelationType(r.URL.Query().Get("type"))
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	relations, err := s.relations.List(r.Context(), status, relType, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list relations")
		return
	}

	writeJSON(w, http.StatusOK, relations)
}

// handleGetRelation godoc
// @Summary      Get relation
// @Tags         Relations
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Relation ID"
// @Success      200  {object}  domain.Relation
// @Failure      404  {object}  ErrorResponse  "Relation not found"
// @Router       /relations/{id} [get]
func (s *Server) handleGetRelation(w http.ResponseWriter, r *http.Request) {
	relation, err := s.relations.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, "failed to get relation")
		return
	}

	writeJSON(w, http.StatusOK, relation)
}

// handleListDocumentRelations godoc
// @Summary      List document relations
// @Description  List relations touching a document
// @Tags         Relations
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Document ID"
// @Success      200  {array}   domain.Relation
// @Router       /documents/{id}/relations [get]
func (s *Server) handleListDocumentRelations(w http.ResponseWriter, r *http.Request) {
	relations, err := s.relations.ListForDocument(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, "failed to list relations")
		return
	}

	writeJSON(w, http.StatusOK, relations)
}

// handleConfirmRelation godoc
// @Summary      Confirm relation
// @Description  Mark a pending relation as confirmed
// @Tags         Relations
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Relation ID"
// @Success      200  {object}  StatusResponse
// @Failure      404  {object}  ErrorResponse  "Relation not found"
// @Failure      409  {object}  ErrorResponse  "Relation is not pending"
// @Router       /relations/{id}/confirm [post]
func (s *Server) handleConfirmRelation(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if err := s.relations.Confirm(r.Context(), r.PathValue("id"), authCtx.Email); err != nil {
		writeServiceError(w, err, "confirmation failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "confirmed"})
}

// handleDismissRelation godoc
// @Summary      Dismiss relation
// @Description  Mark a pending relation as dismissed
// @Tags         Relations
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Relation ID"
// @Success      200  {object}  StatusResponse
// @Failure      404  {object}  ErrorResponse  "Relation not found"
// @Failure      409  {object}  ErrorResponse  "Relation is not pending"
// @Router       /relations/{id}/dismiss [post]
func (s *Server) handleDismissRelation(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if err := s.relations.Dismiss(r.Context(), r.PathValue("id"), authCtx.Email); err != nil {
		writeServiceError(w, err, "dismissal failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "dismissed"})
}

// handleResolveRelation godoc
// @Summary      Resolve relation
// @Description  Mark a confirmed relation as resolved
// @Tags         Relations
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Relation ID"
// @Success      200  {object}  StatusResponse
// @Failure      404  {object}  ErrorResponse  "Relation not found"
// @Failure      409  {object}  ErrorResponse  "Relation is not confirmed"
// @Router       /relations/{id}/resolve [post]
func (s *Server) handleResolveRelation(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if err := s.relations.Resolve(r.Context(), r.PathValue("id"), authCtx.Email); err != nil {
		writeServiceError(w, err, "resolution failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
}

// Task endpoints

type enqueueTaskRequest struct {
	Type    string            `json:"type"`
	Payload map[string]string `json:"payload,omitempty"`
}

// handleEnqueueTask godoc
// @Summary      Enqueue task
// @Description  Queue a background task for the worker (admin only)
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      enqueueTaskRequest  true  "Task type and payload"
// @Success      202      {object}  domain.Task
// @Failure      400      {object}  ErrorResponse  "Unknown task type"
// @Router       /tasks [post]
func (s *Server) handleEnqueueTask(w http.ResponseWriter, r *http.Request) {
	var req enqueueTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch domain.TaskType(req.Type) {
	case domain.TaskTypeClassifyBatch, domain.TaskTypeExtractBatch, domain.TaskTypeConsolidate,
		domain.TaskTypeAdvanceSweep, domain.TaskTypeDetectRelations, domain.TaskTypeSuggestRules:
	default:
		writeError(w, http.StatusBadRequest, "unknown task type")
		return
	}

	task := domain.NewTask(domain.TaskType(req.Type), req.Payload)
	if err := s.taskQueue.Enqueue(r.Context(), task); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to enqueue task")
		return
	}

	writeJSON(w, http.StatusAccepted, task)
}

// handleListTasks godoc
// @Summary      List tasks
// @Description  List background tasks, optionally filtered by status and type (admin only)
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "Task status"
// @Param        type    query     string  false  "Task type"
// @Param        limit   query     int     false  "Max results (default 50)"
// @Param        offset  query     int     false  "Pagination offset"
// @Success      200  {array}   domain.Task
// @Router       /tasks [get]
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	filter := driven.TaskFilter{
		Status: domain.TaskStatus(r.URL.Query().Get("status")),
		Type:   domain.TaskType(r.URL.Query().Get("type")),
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}

	tasks, err := s.taskQueue.ListTasks(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}

	writeJSON(w, http.StatusOK, tasks)
}

// handleGetTask godoc
// @Summary      Get task
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Task ID"
// @Success      200  {object}  domain.Task
// @Failure      404  {object}  ErrorResponse  "Task not found"
// @Router       /tasks/{id} [get]
func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.taskQueue.GetTask(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, "failed to get task")
		return
	}

	writeJSON(w, http.StatusOK, task)
}

// handleCancelTask godoc
// @Summary      Cancel task
// @Description  Cancel a pending task (admin only)
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Task ID"
// @Success      200  {object}  StatusResponse
// @Failure      404  {object}  ErrorResponse  "Task not found"
// @Failure      409  {object}  ErrorResponse  "Task is no longer pending"
// @Router       /tasks/{id}/cancel [post]
func (s *Server) handleCancelTask(w http.ResponseWriter, r *http.Request) {
	if err := s.taskQueue.CancelTask(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err, "failed to cancel task")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// handleQueueStats godoc
// @Summary      Queue statistics
// @Description  Get task queue statistics (admin only)
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  driven.QueueStats
// @Router       /admin/queue/stats [get]
func (s *Server) handleQueueStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.taskQueue.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get queue stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// Helpers

// writeServiceError maps domain sentinel errors onto HTTP status codes
func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrGateFailed):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidCondition):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNoIdentity):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrCollaboratorUnavailable):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

// queryInt parses an integer query parameter, falling back on a default
func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
