// Package client is the typed HTTP client the engine uses to reach the
// StreetSafe backend: routing, safety checks, SOS coordination, segment
// feedback and the heatmap overlay.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/saaj376/StreetSafe/internal/fault"
	"github.com/saaj376/StreetSafe/internal/geo"
)

type Client struct {
	base   string
	bearer string
	http   *http.Client
	log    *logrus.Entry
}

// New builds a client for the given base URL. bearer may be empty for
// unauthenticated use (guardian polling, status reads).
func New(baseURL, bearer string) *Client {
	return &Client{
		base:   strings.TrimRight(baseURL, "/"),
		bearer: bearer,
		http:   &http.Client{Timeout: 15 * time.Second},
		log:    logrus.WithField("component", "api-client"),
	}
}

// remoteError is a reachable-but-rejected response before taxonomy mapping.
type remoteError struct {
	Status  int
	Message string
}

func (e *remoteError) Error() string {
	return fmt.Sprintf("service returned %d: %s", e.Status, e.Message)
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fault.Wrap(fault.Validation, "encode request", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fault.Wrap(fault.Validation, "build request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fault.Wrap(fault.Connectivity, "backend unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &remoteError{Status: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fault.Wrap(fault.RemoteRejection, "decode response", err)
	}
	return nil
}

// asFault converts an untranslated remote error into a generic rejection.
func asFault(op string, err error) error {
	if re, ok := err.(*remoteError); ok {
		return fault.Wrap(fault.RemoteRejection, op, re)
	}
	return err
}

// Health probes backend connectivity. Any failure counts as unreachable.
func (c *Client) Health(ctx context.Context) error {
	if err := c.roundTrip(ctx, http.MethodGet, "/api/health", nil, nil); err != nil {
		if fault.KindOf(err) == fault.Connectivity {
			return err
		}
		return fault.Wrap(fault.Connectivity, "health probe failed", err)
	}
	return nil
}

type routeRequest struct {
	StartLat  float64   `json:"start_lat"`
	StartLng  float64   `json:"start_lng"`
	EndLat    float64   `json:"end_lat"`
	EndLng    float64   `json:"end_lng"`
	RouteType RouteMode `json:"route_type"`
}

type routeInfo struct {
	Coordinates       []geo.Coordinate `json:"coordinates"`
	Segments          []SegmentRef     `json:"segments"`
	TotalLength       float64          `json:"total_length"`
	AvgSafetyScore    float64          `json:"avg_safety_score"`
	EstimatedTimeMins float64          `json:"estimated_time_mins"`
}

type routeResponse struct {
	Fastest *routeInfo `json:"fastest"`
	Safest  *routeInfo `json:"safest"`
}

func candidateFrom(kind string, info *routeInfo) (RouteCandidate, bool) {
	// A path with a single waypoint is not routable.
	if info == nil || len(info.Coordinates) < 2 {
		return RouteCandidate{}, false
	}
	return RouteCandidate{
		Kind:              kind,
		Coordinates:       info.Coordinates,
		DistanceM:         info.TotalLength,
		EstimatedTimeMins: info.EstimatedTimeMins,
		AvgSafetyScore:    info.AvgSafetyScore,
		Segments:          info.Segments,
	}, true
}

// Route requests candidate routes between two endpoints. A missing requested
// kind is omitted from the result; an empty result is NoRouteFound.
func (c *Client) Route(ctx context.Context, start, end geo.Coordinate, mode RouteMode) ([]RouteCandidate, error) {
	if err := geo.ValidateEndpoints(start, end); err != nil {
		return nil, fault.Wrap(fault.Validation, "invalid endpoints", err)
	}
	if !mode.Valid() {
		return nil, fault.New(fault.Validation, "unknown route mode "+string(mode))
	}

	var resp routeResponse
	err := c.roundTrip(ctx, http.MethodPost, "/api/route", routeRequest{
		StartLat:  start.Lat,
		StartLng:  start.Lng,
		EndLat:    end.Lat,
		EndLng:    end.Lng,
		RouteType: mode,
	}, &resp)
	if err != nil {
		return nil, asFault("request route", err)
	}

	var candidates []RouteCandidate
	if cand, ok := candidateFrom(string(ModeFastest), resp.Fastest); ok {
		candidates = append(candidates, cand)
	}
	if cand, ok := candidateFrom(string(ModeSafest), resp.Safest); ok {
		candidates = append(candidates, cand)
	}
	if len(candidates) == 0 {
		return nil, fault.ErrNoRouteFound
	}
	return candidates, nil
}

type safetyRequest struct {
	CurrentLat float64          `json:"current_lat"`
	CurrentLng float64          `json:"current_lng"`
	Route      []geo.Coordinate `json:"route"`
	Mode       RouteMode        `json:"mode"`
}

// SafetyCheck correlates the current position against the planned route.
func (c *Client) SafetyCheck(ctx context.Context, cur geo.Coordinate, planned []geo.Coordinate, mode RouteMode) (AlertEvent, error) {
	var ev AlertEvent
	err := c.roundTrip(ctx, http.MethodPost, "/api/safety/check", safetyRequest{
		CurrentLat: cur.Lat,
		CurrentLng: cur.Lng,
		Route:      planned,
		Mode:       mode,
	}, &ev)
	if err != nil {
		return AlertEvent{}, asFault("safety check", err)
	}
	return ev, nil
}

// Reroute requests a replacement route from the current position to the
// original destination.
func (c *Client) Reroute(ctx context.Context, cur geo.Coordinate, planned []geo.Coordinate, mode RouteMode) (RouteCandidate, error) {
	var info routeInfo
	err := c.roundTrip(ctx, http.MethodPost, "/api/safety/reroute", safetyRequest{
		CurrentLat: cur.Lat,
		CurrentLng: cur.Lng,
		Route:      planned,
		Mode:       mode,
	}, &info)
	if err != nil {
		return RouteCandidate{}, asFault("reroute", err)
	}
	cand, ok := candidateFrom(string(mode), &info)
	if !ok {
		return RouteCandidate{}, fault.ErrNoRouteFound
	}
	return cand, nil
}

type activateRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (c *Client) ActivateSOS(ctx context.Context, cur geo.Coordinate) (SOSGrant, error) {
	var grant SOSGrant
	err := c.roundTrip(ctx, http.MethodPost, "/api/sos/activate", activateRequest{Lat: cur.Lat, Lng: cur.Lng}, &grant)
	if err != nil {
		return SOSGrant{}, asFault("activate sos", err)
	}
	if grant.Token == "" {
		return SOSGrant{}, fault.New(fault.RemoteRejection, "activation returned empty token")
	}
	return grant, nil
}

type sosUpdateRequest struct {
	Token        string  `json:"token"`
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	IsStationary bool    `json:"is_stationary"`
}

func (c *Client) UpdateSOS(ctx context.Context, token string, cur geo.Coordinate, stationary bool) error {
	err := c.roundTrip(ctx, http.MethodPost, "/api/sos/update", sosUpdateRequest{
		Token:        token,
		Lat:          cur.Lat,
		Lng:          cur.Lng,
		IsStationary: stationary,
	}, nil)
	return tokenFault("update sos", err)
}

func (c *Client) SOSStatus(ctx context.Context, token string) (GuardianSnapshot, error) {
	var snap GuardianSnapshot
	err := c.roundTrip(ctx, http.MethodGet, "/guardian/"+token, nil, &snap)
	if err != nil {
		return GuardianSnapshot{}, tokenFault("sos status", err)
	}
	return snap, nil
}

type deactivateRequest struct {
	Token string `json:"token"`
}

func (c *Client) DeactivateSOS(ctx context.Context, token string) error {
	err := c.roundTrip(ctx, http.MethodPost, "/api/sos/deactivate", deactivateRequest{Token: token}, nil)
	return tokenFault("deactivate sos", err)
}

// tokenFault maps token-shaped remote errors onto their named faults.
func tokenFault(op string, err error) error {
	if err == nil {
		return nil
	}
	if re, ok := err.(*remoteError); ok {
		switch re.Status {
		case http.StatusNotFound:
			return fault.ErrTokenNotFound
		case http.StatusGone:
			return fault.ErrTokenExpired
		}
	}
	return asFault(op, err)
}

type feedbackRequest struct {
	SegmentID int64    `json:"segment_id"`
	Rating    int      `json:"rating"`
	Tags      []string `json:"tags,omitempty"`
	Persona   string   `json:"persona,omitempty"`
}

func (c *Client) SubmitFeedback(ctx context.Context, segmentID int64, rating int, tags []string, persona string) error {
	err := c.roundTrip(ctx, http.MethodPost, "/api/feedback", feedbackRequest{
		SegmentID: segmentID,
		Rating:    rating,
		Tags:      tags,
		Persona:   persona,
	}, nil)
	return asFault("submit feedback", err)
}

// Heatmap fetches the current safety overlay as raw GeoJSON.
func (c *Client) Heatmap(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.roundTrip(ctx, http.MethodGet, "/api/heatmap", nil, &raw); err != nil {
		return nil, asFault("fetch heatmap", err)
	}
	return raw, nil
}
