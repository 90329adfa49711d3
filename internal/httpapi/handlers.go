package httpapi

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/roach88/brutalist/internal/domain"
	"github.com/roach88/brutalist/internal/engine"
	"github.com/roach88/brutalist/internal/ledger"
	"github.com/roach88/brutalist/internal/session"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type stateResponse struct {
	Revision int64 `json:"revision"`
	domain.Snapshot
}

type orderResponse struct {
	Order   domain.Order   `json:"order"`
	Journal ledger.Journal `json:"journal"`
	Error   string         `json:"error,omitempty"`
}

type statusRequest struct {
	Status domain.OrderStatus `json:"status"`
}

type stockRequest struct {
	Delta int `json:"delta"`
}

type sessionResponse struct {
	SignedIn bool              `json:"signedIn"`
	Remote   bool              `json:"remote"`
	Identity *session.Identity `json:"identity,omitempty"`
}

// fail maps an engine error onto a status code.
func fail(c echo.Context, err error) error {
	var ee *engine.Error
	code := ""
	if errors.As(err, &ee) {
		code = string(ee.Code)
	}
	status := http.StatusInternalServerError
	switch {
	case engine.IsNotFound(err):
		status = http.StatusNotFound
	case engine.IsInvalid(err):
		status = http.StatusBadRequest
	case engine.IsRemoteWriteError(err):
		status = http.StatusBadGateway
	}
	return c.JSON(status, errorBody{Error: err.Error(), Code: code})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, errorBody{Error: msg, Code: string(engine.ErrCodeInvalid)})
}

// pathID returns the unescaped :id parameter. Order ids such as "#5023"
// arrive percent-encoded.
func pathID(c echo.Context) string {
	raw := c.Param("id")
	if id, err := url.PathUnescape(raw); err == nil {
		return id
	}
	return raw
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"service":  "brutalist",
		"remote":   s.eng.Remote(),
		"revision": s.eng.State().Revision(),
		"time":     s.now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) getState(c echo.Context) error {
	st := s.eng.State()
	return c.JSON(http.StatusOK, stateResponse{Revision: st.Revision(), Snapshot: st.Snapshot()})
}

func (s *Server) reset(c echo.Context) error {
	if err := s.eng.Reset(c.Request().Context()); err != nil {
		return fail(c, err)
	}
	return s.getState(c)
}

func (s *Server) createOrder(c echo.Context) error {
	var o domain.Order
	if err := c.Bind(&o); err != nil {
		return badRequest(c, "invalid order payload")
	}
	created, journal, err := s.eng.CreateOrder(c.Request().Context(), o)
	if err != nil {
		if ledger.IsPartial(err) {
			return c.JSON(http.StatusMultiStatus, orderResponse{Order: created, Journal: journal, Error: err.Error()})
		}
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, orderResponse{Order: created, Journal: journal})
}

func (s *Server) deleteOrder(c echo.Context) error {
	journal, err := s.eng.DeleteOrder(c.Request().Context(), pathID(c))
	if err != nil {
		if ledger.IsPartial(err) {
			return c.JSON(http.StatusMultiStatus, orderResponse{Journal: journal, Error: err.Error()})
		}
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, orderResponse{Journal: journal})
}

func (s *Server) updateOrderStatus(c echo.Context) error {
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid status payload")
	}
	o, err := s.eng.UpdateOrderStatus(c.Request().Context(), pathID(c), req.Status)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

func (s *Server) addProduct(c echo.Context) error {
	var p domain.Product
	if err := c.Bind(&p); err != nil {
		return badRequest(c, "invalid product payload")
	}
	p, err := s.eng.AddProduct(c.Request().Context(), p)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (s *Server) updateProduct(c echo.Context) error {
	var p domain.Product
	if err := c.Bind(&p); err != nil {
		return badRequest(c, "invalid product payload")
	}
	p.ID = pathID(c)
	p, err := s.eng.UpdateProduct(c.Request().Context(), p)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) deleteProduct(c echo.Context) error {
	if err := s.eng.DeleteProduct(c.Request().Context(), pathID(c)); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) adjustStock(c echo.Context) error {
	var req stockRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid stock payload")
	}
	p, err := s.eng.AdjustProductStock(c.Request().Context(), pathID(c), req.Delta)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) lowStock(c echo.Context) error {
	return c.JSON(http.StatusOK, s.eng.LowStockMaterials())
}

func (s *Server) addMaterial(c echo.Context) error {
	var m domain.Material
	if err := c.Bind(&m); err != nil {
		return badRequest(c, "invalid material payload")
	}
	m, err := s.eng.AddMaterial(c.Request().Context(), m)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, m)
}

func (s *Server) updateMaterial(c echo.Context) error {
	var m domain.Material
	if err := c.Bind(&m); err != nil {
		return badRequest(c, "invalid material payload")
	}
	m.ID = pathID(c)
	m, err := s.eng.UpdateMaterial(c.Request().Context(), m)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

func (s *Server) deleteMaterial(c echo.Context) error {
	if err := s.eng.DeleteMaterial(c.Request().Context(), pathID(c)); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) updateSettings(c echo.Context) error {
	var patch domain.SettingsPatch
	if err := c.Bind(&patch); err != nil {
		return badRequest(c, "invalid settings payload")
	}
	settings, err := s.eng.UpdateSettings(c.Request().Context(), patch)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, settings)
}

func (s *Server) exportBackup(c echo.Context) error {
	name, data, err := s.eng.Export()
	if err != nil {
		return fail(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+name+`"`)
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, data)
}

func (s *Server) importBackup(c echo.Context) error {
	data, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return badRequest(c, "could not read backup")
	}
	if !s.eng.Import(data) {
		return badRequest(c, "backup rejected")
	}
	return s.getState(c)
}

func (s *Server) getSession(c echo.Context) error {
	id := s.eng.Identity()
	return c.JSON(http.StatusOK, sessionResponse{SignedIn: id != nil, Remote: s.eng.Remote(), Identity: id})
}

// signIn hands the verified identity to the session hub. The engine reloads
// asynchronously when the user changes.
func (s *Server) signIn(c echo.Context) error {
	id, ok := c.Get(identityKey).(session.Identity)
	if !ok {
		return c.JSON(http.StatusUnauthorized, errorBody{Error: "invalid or missing session token"})
	}
	s.sessions.SignIn(id)
	s.logger.Info().Str("user", id.ID).Msg("session started")
	return c.JSON(http.StatusAccepted, sessionResponse{SignedIn: true, Identity: &id})
}

func (s *Server) signOut(c echo.Context) error {
	s.sessions.SignOut()
	s.logger.Info().Msg("session ended")
	return c.NoContent(http.StatusNoContent)
}
