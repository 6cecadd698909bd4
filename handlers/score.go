package handlers

import (
	"net/http"
	"sort"

	"sustain_score_app_go/middleware"
	"sustain_score_app_go/services"
	"sustain_score_app_go/services/scoring"

	"github.com/labstack/echo/v4"
)

// ScoreRequest is the body of the stateless scoring endpoints
type ScoreRequest struct {
	TaxonomyVersion int                       `json:"taxonomy_version"`
	Responses       map[string]string         `json:"responses"`
	Priorities      map[string]int            `json:"priorities"`
	SummaryValues   scoring.SubCategoryValues `json:"summary_values"`
}

// parseResponses accepts yes/no/n/a spellings and reports every bad value
func parseResponses(raw map[string]string) (scoring.Responses, services.ValidationErrors) {
	out := scoring.Responses{}
	var errs services.ValidationErrors
	for itemID, v := range raw {
		r, err := scoring.ParseResponse(v)
		if err != nil {
			errs = append(errs, &services.ValidationError{Code: services.CodeUnknownIdentifier, Field: itemID, Message: err.Error()})
			continue
		}
		out[itemID] = r
	}
	sortErrors(errs)
	return out, errs
}

func toPriorities(raw map[string]int) scoring.Priorities {
	out := scoring.Priorities{}
	for itemID, p := range raw {
		out[itemID] = scoring.Priority(p)
	}
	return out
}

func sortErrors(errs services.ValidationErrors) {
	sort.SliceStable(errs, func(i, j int) bool { return errs[i].Field < errs[j].Field })
}

// input resolves the request against tax. Priority overrides only apply for admins.
func (r ScoreRequest) input(tax *scoring.Taxonomy, isAdmin bool) (scoring.Input, error) {
	responses, errs := parseResponses(r.Responses)
	if len(errs) > 0 {
		return scoring.Input{}, errs
	}
	if errs := services.ValidateResponses(tax, responses); len(errs) > 0 {
		return scoring.Input{}, errs
	}
	if errs := services.ValidateScores(tax, r.SummaryValues); len(errs) > 0 {
		return scoring.Input{}, errs
	}
	return scoring.Input{
		Responses:  responses,
		Priorities: scoring.EffectivePriorities(tax, toPriorities(r.Priorities), isAdmin),
		Manual:     r.SummaryValues,
	}, nil
}

// ComputeScoreHandler scores a set of responses without creating a session
func (a *App) ComputeScoreHandler(c echo.Context) error {
	var req ScoreRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	tax, err := a.Taxonomy.Version(c.Request().Context(), req.TaxonomyVersion)
	if err != nil {
		return respondError(c, err)
	}
	in, err := req.input(tax, middleware.IsAdmin(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, scoring.ComputeScore(tax, in))
}

// GateResponse is a completeness gate result with display warnings
type GateResponse struct {
	*scoring.GateResult
	Warnings []string `json:"warnings"`
}

func gateResponse(g *scoring.GateResult) GateResponse {
	w := g.Warnings()
	if w == nil {
		w = []string{}
	}
	return GateResponse{GateResult: g, Warnings: w}
}

// CheckGateHandler evaluates the completeness gate for one category
func (a *App) CheckGateHandler(c echo.Context) error {
	var req ScoreRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	tax, err := a.Taxonomy.Version(c.Request().Context(), req.TaxonomyVersion)
	if err != nil {
		return respondError(c, err)
	}
	in, err := req.input(tax, middleware.IsAdmin(c))
	if err != nil {
		return respondError(c, err)
	}

	g, err := scoring.CheckCompleteness(tax, c.Param("categoryId"), in.Responses, in.Priorities)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, gateResponse(g))
}
