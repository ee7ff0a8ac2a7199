package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/tryonstudio/tryon-backend/internal/generations"
	pkgerrors "github.com/tryonstudio/tryon-backend/pkg/errors"
)

type testGalleryService struct {
	listFn     func(ctx context.Context, params generations.ListParams) (*generations.ListResult, error)
	trashFn    func(ctx context.Context, params generations.ListParams) (*generations.ListResult, error)
	getFn      func(ctx context.Context, userID, generationID uuid.UUID) (*generations.GenerationDTO, error)
	favoriteFn func(ctx context.Context, userID, generationID uuid.UUID) (*generations.GenerationDTO, error)
	deleteFn   func(ctx context.Context, userID, generationID uuid.UUID) error
	restoreFn  func(ctx context.Context, userID, generationID uuid.UUID) error
	purgeFn    func(ctx context.Context, userID, generationID uuid.UUID) error
}

func (s *testGalleryService) List(ctx context.Context, params generations.ListParams) (*generations.ListResult, error) {
	if s.listFn != nil {
		return s.listFn(ctx, params)
	}
	return &generations.ListResult{}, nil
}

func (s *testGalleryService) ListTrash(ctx context.Context, params generations.ListParams) (*generations.ListResult, error) {
	if s.trashFn != nil {
		return s.trashFn(ctx, params)
	}
	return &generations.ListResult{}, nil
}

func (s *testGalleryService) Get(ctx context.Context, userID, generationID uuid.UUID) (*generations.GenerationDTO, error) {
	if s.getFn != nil {
		return s.getFn(ctx, userID, generationID)
	}
	return &generations.GenerationDTO{}, nil
}

func (s *testGalleryService) ToggleFavorite(ctx context.Context, userID, generationID uuid.UUID) (*generations.GenerationDTO, error) {
	if s.favoriteFn != nil {
		return s.favoriteFn(ctx, userID, generationID)
	}
	return &generations.GenerationDTO{}, nil
}

func (s *testGalleryService) SoftDelete(ctx context.Context, userID, generationID uuid.UUID) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, userID, generationID)
	}
	return nil
}

func (s *testGalleryService) Restore(ctx context.Context, userID, generationID uuid.UUID) error {
	if s.restoreFn != nil {
		return s.restoreFn(ctx, userID, generationID)
	}
	return nil
}

func (s *testGalleryService) Purge(ctx context.Context, userID, generationID uuid.UUID) error {
	if s.purgeFn != nil {
		return s.purgeFn(ctx, userID, generationID)
	}
	return nil
}

func TestGalleryListPassesFilters(t *testing.T) {
	userID := uuid.New()
	var captured generations.ListParams
	svc := &testGalleryService{
		listFn: func(ctx context.Context, params generations.ListParams) (*generations.ListResult, error) {
			captured = params
			return &generations.ListResult{}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/gallery?limit=12&favoritesOnly=true&cursor=xyz", nil)
	req = authedRequest(req, userID)
	resp := httptest.NewRecorder()
	GalleryList(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if captured.UserID != userID {
		t.Fatalf("unexpected user %s", captured.UserID)
	}
	if captured.Limit != 12 {
		t.Fatalf("unexpected limit %d", captured.Limit)
	}
	if !captured.FavoritesOnly {
		t.Fatal("expected favorites filter")
	}
	if captured.Cursor != "xyz" {
		t.Fatalf("unexpected cursor %q", captured.Cursor)
	}
}

func TestGalleryListRejectsUnauthenticated(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/gallery", nil)
	resp := httptest.NewRecorder()
	GalleryList(&testGalleryService{}, testLogger())(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestGalleryGetRejectsBadID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/gallery/not-a-uuid", nil)
	req = authedRequest(req, uuid.New())
	req = addRouteParam(req, "generationId", "not-a-uuid")
	resp := httptest.NewRecorder()
	GalleryGet(&testGalleryService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestGalleryDeleteSurfacesStateConflict(t *testing.T) {
	svc := &testGalleryService{
		deleteFn: func(ctx context.Context, userID, generationID uuid.UUID) error {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "generation already trashed")
		},
	}
	generationID := uuid.New()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/gallery/"+generationID.String(), nil)
	req = authedRequest(req, uuid.New())
	req = addRouteParam(req, "generationId", generationID.String())
	resp := httptest.NewRecorder()
	GalleryDelete(svc, testLogger())(resp, req)
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}

func TestGalleryRestoreSuccess(t *testing.T) {
	userID := uuid.New()
	generationID := uuid.New()
	called := false
	svc := &testGalleryService{
		restoreFn: func(ctx context.Context, uid, gid uuid.UUID) error {
			called = true
			if uid != userID || gid != generationID {
				t.Fatalf("unexpected identifiers %s %s", uid, gid)
			}
			return nil
		},
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/gallery/"+generationID.String()+"/restore", nil)
	req = authedRequest(req, userID)
	req = addRouteParam(req, "generationId", generationID.String())
	resp := httptest.NewRecorder()
	GalleryRestore(svc, testLogger())(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if !called {
		t.Fatal("expected service called")
	}
}
