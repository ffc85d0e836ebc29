package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/unionportal/ballot-system/internal/api/metrics"
	"github.com/unionportal/ballot-system/internal/core/domain"
	"github.com/unionportal/ballot-system/internal/core/ports"
)

// BallotHandler handles HTTP requests for casting and tallying ballots.
type BallotHandler struct {
	service ports.BallotService
}

func NewBallotHandler(service ports.BallotService) *BallotHandler {
	return &BallotHandler{service: service}
}

// Cast records the caller's ballot.
//
// @Summary      Cast a ballot
// @Tags         ballots
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      castBallotRequest  true  "Chosen candidate"
// @Success      201   {object}  domain.Ballot
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /v1/ballots [post]
func (h *BallotHandler) Cast(c echo.Context) error {
	_, identity, err := ctxSession(c)
	if err != nil {
		return err
	}

	var req castBallotRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ballot, err := h.service.Cast(c.Request().Context(), identity.ID, req.CandidateID)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyVoted) {
			metrics.BallotsCastTotal.WithLabelValues("already_voted").Inc()
		} else {
			metrics.BallotsCastTotal.WithLabelValues("error").Inc()
		}
		return err
	}

	metrics.BallotsCastTotal.WithLabelValues("accepted").Inc()
	return c.JSON(http.StatusCreated, ballot)
}

// Mine reports whether the caller has voted and for whom.
//
// @Summary      Own ballot
// @Tags         ballots
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  ballotStatusResponse
// @Failure      401  {object}  errorResponse
// @Router       /v1/ballots/me [get]
func (h *BallotHandler) Mine(c echo.Context) error {
	_, identity, err := ctxSession(c)
	if err != nil {
		return err
	}

	ballot, err := h.service.BallotOf(c.Request().Context(), identity.ID)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, ballotStatusResponse{HasVoted: true, Ballot: ballot})
	case errors.Is(err, domain.ErrBallotNotFound):
		return c.JSON(http.StatusOK, ballotStatusResponse{HasVoted: false})
	default:
		return err
	}
}

// Results returns vote counts ordered by votes, then candidate id.
//
// @Summary      Election results
// @Tags         ballots
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.TallyView
// @Failure      503  {object}  errorResponse
// @Router       /v1/results [get]
func (h *BallotHandler) Results(c echo.Context) error {
	view, err := h.service.Results(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, view)
}

// Candidates lists the candidates a ballot may name.
//
// @Summary      List candidates
// @Tags         ballots
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.Candidate
// @Failure      503  {object}  errorResponse
// @Router       /v1/candidates [get]
func (h *BallotHandler) Candidates(c echo.Context) error {
	list, err := h.service.Candidates(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}
