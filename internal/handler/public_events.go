// Public browsing API.  These routes need no authentication and only ever
// expose APPROVED events.

package handler

import (
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/campus-events/internal/model"
    "github.com/iliyamo/campus-events/internal/repository"
)

const defaultRadiusKm = 10

// PublicHandler aggregates repositories needed for unauthenticated browsing.
type PublicHandler struct {
    Events    *repository.EventRepo
    SubEvents *repository.SubEventRepo
    Colleges  *repository.CollegeRepo
}

func NewPublicHandler(events *repository.EventRepo, subs *repository.SubEventRepo, colleges *repository.CollegeRepo) *PublicHandler {
    return &PublicHandler{Events: events, SubEvents: subs, Colleges: colleges}
}

// PublicCollege is the public view of an organizer profile.
type PublicCollege struct {
    ID      uint64  `json:"id"`
    Name    string  `json:"name"`
    City    string  `json:"city"`
    Website *string `json:"website,omitempty"`
}

func toPublicCollege(c model.College) PublicCollege {
    return PublicCollege{ID: c.ID, Name: c.Name, City: c.City, Website: c.Website}
}

// SubEventView adds the computed seats_left to a session.
type SubEventView struct {
    model.SubEvent
    SeatsLeft uint32 `json:"seats_left"`
}

func subEventViews(subs []model.SubEvent) []SubEventView {
    out := make([]SubEventView, 0, len(subs))
    for _, s := range subs {
        out = append(out, SubEventView{SubEvent: s, SeatsLeft: s.SeatsLeft()})
    }
    return out
}

// searchQuery builds the repository query from the request's query string.
func searchQuery(c echo.Context) (repository.EventSearchQuery, error) {
    q := repository.EventSearchQuery{
        Text:     strings.TrimSpace(c.QueryParam("q")),
        Category: strings.TrimSpace(c.QueryParam("category")),
        City:     strings.TrimSpace(c.QueryParam("city")),
        Sort:     strings.TrimSpace(c.QueryParam("sort")),
    }
    q.Page, q.PageSize = pageParams(c)

    if !repository.ValidSort(q.Sort) {
        return q, echo.NewHTTPError(http.StatusBadRequest, "invalid sort")
    }
    if raw := c.QueryParam("college_id"); raw != "" {
        id, err := strconv.ParseUint(raw, 10, 64)
        if err != nil {
            return q, echo.NewHTTPError(http.StatusBadRequest, "invalid college_id")
        }
        q.CollegeID = id
    }
    var err error
    if q.From, err = parseTimeParam(c.QueryParam("from")); err != nil {
        return q, err
    }
    if q.To, err = parseTimeParam(c.QueryParam("to")); err != nil {
        return q, err
    }
    if q.From != nil && q.To != nil && q.To.Before(*q.From) {
        return q, echo.NewHTTPError(http.StatusBadRequest, "to must not be before from")
    }
    if q.FreeOnly, err = parseBoolParam(c, "free"); err != nil {
        return q, err
    }
    if q.Available, err = parseBoolParam(c, "available"); err != nil {
        return q, err
    }
    if raw := strings.TrimSpace(c.QueryParam("near")); raw != "" {
        p, err := parseGeoPoint(raw)
        if err != nil {
            return q, err
        }
        q.Near = &p
        q.RadiusKm = defaultRadiusKm
        if r := c.QueryParam("radius_km"); r != "" {
            v, err := strconv.ParseFloat(r, 64)
            if err != nil || v <= 0 || v > 500 {
                return q, echo.NewHTTPError(http.StatusBadRequest, "invalid radius_km")
            }
            q.RadiusKm = v
        }
    }
    return q, nil
}

// parseGeoPoint parses "lat,lng".
func parseGeoPoint(raw string) (repository.GeoPoint, error) {
    bad := echo.NewHTTPError(http.StatusBadRequest, "near must be lat,lng")
    parts := strings.Split(raw, ",")
    if len(parts) != 2 {
        return repository.GeoPoint{}, bad
    }
    lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
    lng, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
    if err1 != nil || err2 != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
        return repository.GeoPoint{}, bad
    }
    return repository.GeoPoint{Lat: lat, Lng: lng}, nil
}

// ListEvents returns approved upcoming events matching the filters.
func (h *PublicHandler) ListEvents(c echo.Context) error {
    q, err := searchQuery(c)
    if err != nil {
        return err
    }
    return h.search(c, q)
}

func (h *PublicHandler) search(c echo.Context, q repository.EventSearchQuery) error {
    ctx, cancel := requestCtx(c)
    defer cancel()

    items, total, err := h.Events.SearchApproved(ctx, q)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, echo.Map{
        "data":      items,
        "total":     total,
        "page":      q.Page,
        "page_size": q.PageSize,
    })
}

// GetEvent returns an approved event with its college and agenda.
func (h *PublicHandler) GetEvent(c echo.Context) error {
    id, err := paramID(c, "id")
    if err != nil {
        return err
    }
    ctx, cancel := requestCtx(c)
    defer cancel()

    e, err := h.Events.GetByID(ctx, id)
    if err != nil {
        return err
    }
    if e.Status != model.EventApproved {
        return repository.ErrEventNotFound
    }
    college, err := h.Colleges.GetByID(ctx, e.CollegeID)
    if err != nil {
        return err
    }
    subs, err := h.SubEvents.ListByEvent(ctx, e.ID)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, echo.Map{
        "event":      e,
        "seats_left": e.SeatsLeft(),
        "college":    toPublicCollege(*college),
        "sub_events": subEventViews(subs),
    })
}

// ListColleges returns every organizer profile.
func (h *PublicHandler) ListColleges(c echo.Context) error {
    ctx, cancel := requestCtx(c)
    defer cancel()

    colleges, err := h.Colleges.ListAll(ctx)
    if err != nil {
        return err
    }
    out := make([]PublicCollege, 0, len(colleges))
    for _, col := range colleges {
        out = append(out, toPublicCollege(col))
    }
    return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// ListCollegeEvents lists the approved upcoming events of one college.
// Search filters from the query string still apply.
func (h *PublicHandler) ListCollegeEvents(c echo.Context) error {
    id, err := paramID(c, "id")
    if err != nil {
        return err
    }
    q, err := searchQuery(c)
    if err != nil {
        return err
    }
    ctx, cancel := requestCtx(c)
    defer cancel()
    if _, err := h.Colleges.GetByID(ctx, id); err != nil {
        return err
    }
    q.CollegeID = id
    return h.search(c, q)
}
