package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aiqa-platform/helpdesk-backend/internal/bitrix"
	"github.com/aiqa-platform/helpdesk-backend/internal/service"
	"github.com/aiqa-platform/helpdesk-backend/internal/store"
)

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
	}{
		{service.ErrValidation, http.StatusBadRequest},
		{bitrix.ErrInvalidArgument, http.StatusBadRequest},
		{store.ErrConflict, http.StatusBadRequest},
		{fmt.Errorf("%w: chat1", service.ErrNoResponsibleOperator), http.StatusBadRequest},
		{fmt.Errorf("%w: chat1", service.ErrOperatorNotRegistered), http.StatusBadRequest},
		{store.ErrNotFound, http.StatusNotFound},
		{bitrix.ErrNotFound, http.StatusNotFound},
		{service.ErrInvalidCredentials, http.StatusUnauthorized},
		{service.ErrForbidden, http.StatusForbidden},
		{bitrix.ErrUnavailable, http.StatusInternalServerError},
		{bitrix.ErrDataMissing, http.StatusInternalServerError},
		{bitrix.ErrProtocol, http.StatusInternalServerError},
		{errors.New("surprise"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeServiceError(rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestWriteServiceErrorHidesUnknownDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	writeServiceError(rec, errors.New("pgx: connection refused at 10.0.0.5"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
	assert.Contains(t, rec.Body.String(), "internal error")
}
