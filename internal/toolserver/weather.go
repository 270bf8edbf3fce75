package toolserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
)

const (
	defaultWeatherBaseURL = "https://api.weather.gov"
	weatherUserAgent      = "goreact-weather/1.0"
	maxForecastPeriods    = 5
)

type weatherClient struct {
	baseURL string
	client  *http.Client
}

func newWeatherClient(baseURL string, client *http.Client) *weatherClient {
	if baseURL == "" {
		baseURL = defaultWeatherBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &weatherClient{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

type alertsResponse struct {
	Features []struct {
		Properties struct {
			Event       string `json:"event"`
			AreaDesc    string `json:"areaDesc"`
			Severity    string `json:"severity"`
			Description string `json:"description"`
			Instruction string `json:"instruction"`
		} `json:"properties"`
	} `json:"features"`
}

type pointsResponse struct {
	Properties struct {
		Forecast string `json:"forecast"`
	} `json:"properties"`
}

type forecastResponse struct {
	Properties struct {
		Periods []struct {
			Name             string  `json:"name"`
			Temperature      float64 `json:"temperature"`
			TemperatureUnit  string  `json:"temperatureUnit"`
			WindSpeed        string  `json:"windSpeed"`
			WindDirection    string  `json:"windDirection"`
			DetailedForecast string  `json:"detailedForecast"`
		} `json:"periods"`
	} `json:"properties"`
}

func (w *weatherClient) get(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", weatherUserAgent)
	req.Header.Set("Accept", "application/geo+json")

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("weather API %s returned %d: %s", url, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (w *weatherClient) getAlerts(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	state, err := req.RequireString("state")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	var data alertsResponse
	if err := w.get(ctx, w.baseURL+"/alerts/active/area/"+strings.ToUpper(strings.TrimSpace(state)), &data); err != nil {
		return mcpgo.NewToolResultError("unable to fetch alerts: " + err.Error()), nil
	}
	if len(data.Features) == 0 {
		return mcpgo.NewToolResultText("No active alerts for this state."), nil
	}

	alerts := make([]string, 0, len(data.Features))
	for _, f := range data.Features {
		p := f.Properties
		alerts = append(alerts, fmt.Sprintf("\nEvent: %s\nArea: %s\nSeverity: %s\nDescription: %s\nInstructions: %s\n",
			orDefault(p.Event, "Unknown"),
			orDefault(p.AreaDesc, "Unknown"),
			orDefault(p.Severity, "Unknown"),
			orDefault(p.Description, "No description available"),
			orDefault(p.Instruction, "No specific instructions provided"),
		))
	}
	return mcpgo.NewToolResultText(strings.Join(alerts, "\n---\n")), nil
}

func (w *weatherClient) getForecast(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	lat, err := req.RequireFloat("latitude")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	lon, err := req.RequireFloat("longitude")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	var points pointsResponse
	pointsURL := fmt.Sprintf("%s/points/%s,%s", w.baseURL, formatNumber(lat), formatNumber(lon))
	if err := w.get(ctx, pointsURL, &points); err != nil {
		return mcpgo.NewToolResultError("unable to fetch forecast data for this location: " + err.Error()), nil
	}
	if points.Properties.Forecast == "" {
		return mcpgo.NewToolResultError("unable to fetch forecast data for this location: no forecast URL"), nil
	}

	var forecast forecastResponse
	if err := w.get(ctx, points.Properties.Forecast, &forecast); err != nil {
		return mcpgo.NewToolResultError("unable to fetch detailed forecast: " + err.Error()), nil
	}

	periods := forecast.Properties.Periods
	if len(periods) > maxForecastPeriods {
		periods = periods[:maxForecastPeriods]
	}
	out := make([]string, 0, len(periods))
	for _, p := range periods {
		out = append(out, fmt.Sprintf("\n%s:\nTemperature: %s°%s\nWind: %s %s\nForecast: %s\n",
			p.Name, formatNumber(p.Temperature), p.TemperatureUnit, p.WindSpeed, p.WindDirection, p.DetailedForecast))
	}
	return mcpgo.NewToolResultText(strings.Join(out, "\n---\n")), nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
