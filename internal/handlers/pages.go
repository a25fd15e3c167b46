package handlers

import (
	"bytes"
	"fmt"
	"net/url"

	"github.com/gofiber/fiber/v3"

	"github.com/pimalab/pimadash/internal/dashboard"
	"github.com/pimalab/pimadash/internal/logging"
)

var selectorLabels = map[string]string{
	dashboard.SelectorHistogramX:       "Feature",
	dashboard.SelectorScatterX:         "X axis",
	dashboard.SelectorScatterY:         "Y axis",
	dashboard.SelectorBoxplotX:         "Feature",
	dashboard.SelectorConfusionFeature: "Predictor",
}

var meanLabels = map[string]string{
	"Pregnancies":   "Average number of Pregnancies",
	"Glucose":       "Average Glucose level",
	"BloodPressure": "Average Blood Pressure level",
	"Insulin":       "Average Insulin level",
	"BMI":           "Average BMI",
	"Age":           "Average Age",
}

// HandleIndex starts a session and renders the dashboard page for it.
func (h *Handlers) HandleIndex(c fiber.Ctx) error {
	s := h.registry.Create()

	var buf bytes.Buffer
	if err := h.page.Execute(&buf, h.pageData(s.Snapshot())); err != nil {
		logging.L().Error("failed to render dashboard", "error", err)
		return c.Status(500).SendString("failed to render dashboard")
	}

	c.Set("Content-Type", "text/html; charset=utf-8")
	return c.Send(buf.Bytes())
}

func (h *Handlers) pageData(snap dashboard.Snapshot) PageData {
	summary := h.registry.Summary()

	data := PageData{
		Title:     "Diagnosis of Diabetes Dashboard",
		Version:   h.version,
		SessionID: snap.SessionID,
		Rows:      summary.Rows,
	}

	for _, m := range summary.Means {
		label, ok := meanLabels[m.Column]
		if !ok {
			label = "Average " + m.Column
		}
		data.Means = append(data.Means, MeanCard{Label: label, Value: m.Value})
	}

	for _, w := range snap.Widgets {
		card := WidgetCard{
			ID:       w.Spec.ID,
			Title:    w.Spec.Title,
			Kind:     w.Spec.Kind,
			ChartURL: fmt.Sprintf("/api/sessions/%s/charts/%s", url.PathEscape(snap.SessionID), url.PathEscape(w.Spec.ID)),
		}
		for _, sel := range w.Spec.Selectors {
			card.Selectors = append(card.Selectors, SelectorControl{
				ID:      sel,
				Label:   selectorLabels[sel],
				Value:   snap.Selections[sel],
				Options: snap.Options,
			})
		}
		data.Widgets = append(data.Widgets, card)
	}
	return data
}
