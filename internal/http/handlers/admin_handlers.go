package handlers

import (
	"net/http"
	"strconv"

	"github.com/svaboev-coder/Tornado-cooking/internal/backup"
	"github.com/svaboev-coder/Tornado-cooking/internal/domain"
	"github.com/svaboev-coder/Tornado-cooking/internal/http/response"
	"github.com/svaboev-coder/Tornado-cooking/internal/repo/postgres"
	"github.com/svaboev-coder/Tornado-cooking/internal/rooms"
	"github.com/svaboev-coder/Tornado-cooking/pkg/logger"
)

// AdminHandlers serves read-only views over the persisted data: recent
// booking records, the room directory, and backup snapshots.
type AdminHandlers struct {
	visitors  postgres.VisitorRepo
	directory rooms.Directory
	backups   *backup.Manager
}

func NewAdminHandlers(visitors postgres.VisitorRepo, directory rooms.Directory, backups *backup.Manager) *AdminHandlers {
	return &AdminHandlers{visitors: visitors, directory: directory, backups: backups}
}

type recordDTO struct {
	ID    int64             `json:"id"`
	Room  string            `json:"room"`
	Date  string            `json:"date"`
	Name  string            `json:"name"`
	Meals domain.MealCounts `json:"meals"`
}

func (h *AdminHandlers) ListRecords(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	recs, err := h.visitors.List(r.Context(), limit, offset)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to list booking records", "error", err)
		response.InternalError(w, "Failed to list records")
		return
	}

	dtos := make([]recordDTO, 0, len(recs))
	for _, rec := range recs {
		dtos = append(dtos, recordDTO{
			ID:    rec.ID,
			Room:  string(rec.Room),
			Date:  domain.FormatStorageDate(rec.Date),
			Name:  rec.Name,
			Meals: rec.Meals,
		})
	}

	response.WriteJSON(w, http.StatusOK, map[string]any{"records": dtos})
}

func (h *AdminHandlers) ListRooms(w http.ResponseWriter, r *http.Request) {
	buildings := h.directory.ListBuildings(r.Context())

	byBuilding := make(map[string][]domain.RoomID, len(buildings))
	for _, b := range buildings {
		byBuilding[b] = h.directory.ListRooms(r.Context(), b)
	}

	response.WriteJSON(w, http.StatusOK, map[string]any{
		"buildings": buildings,
		"rooms":     byBuilding,
	})
}

func (h *AdminHandlers) ListBackups(w http.ResponseWriter, r *http.Request) {
	if h.backups == nil {
		response.WriteJSON(w, http.StatusOK, map[string]any{"backups": []backup.SnapshotInfo{}})
		return
	}

	infos, err := h.backups.List()
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to list backups", "error", err)
		response.InternalError(w, "Failed to list backups")
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]any{"backups": infos})
}
