// Follow - Live Location Tracking and Trail Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/follow

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/follow/internal/models"
	"github.com/tomtom215/follow/internal/track"
)

// legendSteps is how many evenly spaced colors a legend carries.
const legendSteps = 10

// Gradients lists the legend of every coloring mode.
func (h *Handler) Gradients(w http.ResponseWriter, r *http.Request) {
	modes := track.Modes()
	out := make([]models.GradientInfo, 0, len(modes))
	for _, mode := range modes {
		info, err := h.gradientInfo(mode)
		if err != nil {
			respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "palette is incomplete", err)
			return
		}
		out = append(out, info)
	}
	respondData(w, r, http.StatusOK, out, models.Metadata{})
}

// Gradient returns the legend of the mode named in the path.
func (h *Handler) Gradient(w http.ResponseWriter, r *http.Request) {
	mode, err := track.ParseMode(chi.URLParam(r, "mode"))
	if err != nil {
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, err.Error(), nil)
		return
	}
	info, err := h.gradientInfo(mode)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "palette is incomplete", err)
		return
	}
	respondData(w, r, http.StatusOK, info, models.Metadata{})
}

var errMissingGradient = errors.New("palette has no gradient for mode")

func (h *Handler) gradientInfo(mode track.Mode) (models.GradientInfo, error) {
	g, ok := h.palette.Gradient(mode)
	if !ok {
		return models.GradientInfo{}, errMissingGradient
	}
	return models.GradientInfo{
		Mode:        mode,
		Description: g.Description,
		Min:         g.Min,
		Max:         g.Max,
		Threshold:   g.Threshold,
		Stops:       g.Stops,
		Colors:      g.Colors(legendSteps),
		CSS:         g.CSS(),
	}, nil
}

// FrontendConfig returns the settings the browser map needs.
func (h *Handler) FrontendConfig(w http.ResponseWriter, r *http.Request) {
	respondData(w, r, http.StatusOK, models.FrontendConfig{
		MapsAPIKey: h.config.Frontend.MapsAPIKey,
	}, models.Metadata{})
}
