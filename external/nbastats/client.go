package nbastats

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"

	"github.com/courtmetrics/hoop-ingest/internal/domain/rawdata"
	"github.com/courtmetrics/hoop-ingest/internal/platform/logging"
	"github.com/courtmetrics/hoop-ingest/internal/platform/resilience"
	"github.com/courtmetrics/hoop-ingest/internal/usecase"
)

const (
	defaultBaseURL  = "https://stats.nba.com/stats"
	defaultTimeout  = 20 * time.Second
	maxResponseSize = 8 << 20

	sourceName = "nbastats"
)

var errTransient = crerr.New("nbastats transient failure")

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client reads the stats API's result-set envelopes. Every endpoint
// answers with named tables of headers plus row tuples; rows are decoded
// by header name so column reordering upstream cannot silently shift
// values.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = defaultTimeout
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		maxRetries:     max(cfg.MaxRetries, 0),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

func (c *Client) FetchTeams(ctx context.Context) ([]usecase.ExternalTeam, []rawdata.Payload, error) {
	var envelope resultSetEnvelope
	raw, err := c.doJSON(ctx, "/leaguedashteamstats", map[string]string{"PerMode": "Totals"}, &envelope)
	if err != nil {
		return nil, nil, wrapFetchErr("/leaguedashteamstats", err)
	}
	payload := buildAPIPayload("teams", "league", raw)

	table, err := envelope.table("LeagueDashTeamStats")
	if err != nil {
		return nil, nil, wrapFetchErr("/leaguedashteamstats", err)
	}

	out := make([]usecase.ExternalTeam, 0, table.len())
	for i := 0; i < table.len(); i++ {
		row := table.row(i)
		name := row.str("TEAM_NAME")
		if name == "" {
			continue
		}
		out = append(out, usecase.ExternalTeam{
			Name:         name,
			Abbreviation: row.str("TEAM_ABBREVIATION"),
			City:         row.str("TEAM_CITY"),
			Conference:   row.str("CONFERENCE"),
			Division:     row.str("DIVISION"),
		})
	}
	return out, []rawdata.Payload{payload}, nil
}

func (c *Client) FetchPlayers(ctx context.Context) ([]usecase.ExternalPlayer, []rawdata.Payload, error) {
	var envelope resultSetEnvelope
	raw, err := c.doJSON(ctx, "/commonallplayers", map[string]string{"IsOnlyCurrentSeason": "1"}, &envelope)
	if err != nil {
		return nil, nil, wrapFetchErr("/commonallplayers", err)
	}
	payload := buildAPIPayload("players", "league", raw)

	table, err := envelope.table("CommonAllPlayers")
	if err != nil {
		return nil, nil, wrapFetchErr("/commonallplayers", err)
	}

	out := make([]usecase.ExternalPlayer, 0, table.len())
	for i := 0; i < table.len(); i++ {
		row := table.row(i)
		name := row.str("DISPLAY_FIRST_LAST")
		if name == "" {
			continue
		}
		out = append(out, usecase.ExternalPlayer{
			FullName:     name,
			TeamName:     row.str("TEAM_NAME"),
			Position:     row.str("POSITION"),
			JerseyNumber: row.str("JERSEY"),
			HeightRaw:    row.str("HEIGHT"),
			WeightRaw:    row.str("WEIGHT"),
		})
	}
	return out, []rawdata.Payload{payload}, nil
}

func (c *Client) FetchGamesForDate(ctx context.Context, date time.Time) ([]usecase.ExternalGame, []rawdata.Payload, error) {
	day := date.Format("01/02/2006")
	var envelope resultSetEnvelope
	raw, err := c.doJSON(ctx, "/scoreboardv2", map[string]string{"GameDate": day, "DayOffset": "0"}, &envelope)
	if err != nil {
		return nil, nil, wrapFetchErr("/scoreboardv2", err)
	}
	payload := buildAPIPayload("games", date.Format("2006-01-02"), raw)

	header, err := envelope.table("GameHeader")
	if err != nil {
		return nil, nil, wrapFetchErr("/scoreboardv2", err)
	}
	scores, _ := envelope.table("LineScore")

	type teamScore struct {
		name   string
		points *int
	}
	scoreByGameTeam := make(map[string]teamScore)
	if scores != nil {
		for i := 0; i < scores.len(); i++ {
			row := scores.row(i)
			key := row.str("GAME_ID") + "\x1f" + row.str("TEAM_ID")
			ts := teamScore{name: strings.TrimSpace(row.str("TEAM_CITY_NAME") + " " + row.str("TEAM_NAME"))}
			if pts, ok := row.num("PTS"); ok {
				p := int(pts)
				ts.points = &p
			}
			scoreByGameTeam[key] = ts
		}
	}

	out := make([]usecase.ExternalGame, 0, header.len())
	for i := 0; i < header.len(); i++ {
		row := header.row(i)
		gameRef := row.str("GAME_ID")
		if gameRef == "" {
			continue
		}
		home := scoreByGameTeam[gameRef+"\x1f"+row.str("HOME_TEAM_ID")]
		away := scoreByGameTeam[gameRef+"\x1f"+row.str("VISITOR_TEAM_ID")]
		out = append(out, usecase.ExternalGame{
			GameRef:      gameRef,
			GameDate:     date.Format("2006-01-02"),
			HomeTeamName: home.name,
			AwayTeamName: away.name,
			HomeScore:    home.points,
			AwayScore:    away.points,
			Status:       row.str("GAME_STATUS_TEXT"),
			SeasonType:   seasonTypeFromGameRef(gameRef),
		})
	}
	return out, []rawdata.Payload{payload}, nil
}

func (c *Client) FetchBoxScore(ctx context.Context, gameRef string) ([]usecase.ExternalStatLine, []rawdata.Payload, error) {
	gameRef = strings.TrimSpace(gameRef)
	if gameRef == "" {
		return nil, nil, fmt.Errorf("game ref is required")
	}

	var envelope resultSetEnvelope
	raw, err := c.doJSON(ctx, "/boxscoretraditionalv2", map[string]string{"GameID": gameRef}, &envelope)
	if err != nil {
		return nil, nil, wrapFetchErr("/boxscoretraditionalv2", err)
	}
	payload := buildAPIPayload("box_score", gameRef, raw)

	table, err := envelope.table("PlayerStats")
	if err != nil {
		return nil, nil, wrapFetchErr("/boxscoretraditionalv2", err)
	}

	out := make([]usecase.ExternalStatLine, 0, table.len())
	for i := 0; i < table.len(); i++ {
		row := table.row(i)
		name := row.str("PLAYER_NAME")
		if name == "" {
			continue
		}
		line := usecase.ExternalStatLine{
			GameRef:       gameRef,
			PlayerName:    name,
			TeamName:      strings.TrimSpace(row.str("TEAM_CITY") + " " + row.str("TEAM_NAME")),
			MinutesRaw:    row.str("MIN"),
			StartPosition: row.str("START_POSITION"),
		}
		line.Points, _ = row.num("PTS")
		line.Rebounds, _ = row.num("REB")
		line.Assists, _ = row.num("AST")
		line.Steals, _ = row.num("STL")
		line.Blocks, _ = row.num("BLK")
		line.Turnovers, _ = row.num("TO")
		line.FieldGoalsMade, _ = row.num("FGM")
		line.FieldGoalsAtt, _ = row.num("FGA")
		line.ThreesMade, _ = row.num("FG3M")
		line.ThreesAtt, _ = row.num("FG3A")
		line.FreeThrowsMade, _ = row.num("FTM")
		line.FreeThrowsAtt, _ = row.num("FTA")
		out = append(out, line)
	}
	return out, []rawdata.Payload{payload}, nil
}

func (c *Client) doJSON(ctx context.Context, path string, query map[string]string, target any) ([]byte, error) {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "nbastats circuit breaker rejected request", "state", c.breaker.State())
			return nil, fmt.Errorf("%w: stats provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	values := url.Values{}
	for key, value := range query {
		values.Set(key, value)
	}

	fullURL := c.baseURL + path
	if encoded := values.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	out, err, _ := c.flight.Do(fullURL, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if reqErr != nil && crerr.Is(reqErr, errTransient) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		return nil, err
	}

	raw, ok := out.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected response payload type %T", out)
	}

	if err := sonic.Unmarshal(raw, target); err != nil {
		return nil, fmt.Errorf("decode provider payload: %w", err)
	}
	return raw, nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("accept", "application/json")
		req.Header.Set("referer", "https://stats.nba.com/")
		req.Header.Set("user-agent", "Mozilla/5.0 (X11; Linux x86_64)")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %v", errTransient, err)
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
			_ = resp.Body.Close()
			if readErr != nil {
				lastErr = fmt.Errorf("%w: read response body: %v", errTransient, readErr)
			} else if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return raw, nil
			} else if isRetryableStatus(resp.StatusCode) {
				lastErr = fmt.Errorf("%w: provider status=%d", errTransient, resp.StatusCode)
			} else {
				return nil, fmt.Errorf("provider status=%d", resp.StatusCode)
			}
		}

		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * time.Second
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("provider request failed")
	}
	c.logger.WarnContext(ctx, "nbastats request failed", "url", fullURL, "error", lastErr)
	return nil, lastErr
}

func wrapFetchErr(endpoint string, err error) error {
	return &usecase.FetchError{
		Source:    sourceName,
		Endpoint:  endpoint,
		Transient: crerr.Is(err, errTransient),
		Err:       err,
	}
}

func buildAPIPayload(entityType, entityKey string, raw []byte) rawdata.Payload {
	return rawdata.Payload{
		Source:      sourceName,
		EntityType:  entityType,
		EntityKey:   entityKey,
		PayloadJSON: string(raw),
		FetchedAt:   time.Now().UTC(),
	}
}

func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// seasonTypeFromGameRef reads the season type digit the provider encodes
// in position two of its game ids: 1 preseason, 2 regular, 4 playoffs.
func seasonTypeFromGameRef(gameRef string) string {
	if len(gameRef) < 3 {
		return ""
	}
	switch gameRef[2] {
	case '1':
		return "PRESEASON"
	case '4':
		return "PLAYOFFS"
	default:
		return "REGULAR"
	}
}
