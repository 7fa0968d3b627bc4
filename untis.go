package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// UntisElement is a named timetable element (subject, room).
type UntisElement struct {
	Name     string `json:"name"`
	LongName string `json:"longname"`
}

// Lesson is one scheduled timetable entry for a given date and hour slot.
// Lessons are read-only: fetched fresh per window, never written back.
type Lesson struct {
	LessonID  int64          `json:"lessonId"`
	Date      int            `json:"date"`      // yyyymmdd
	StartTime int            `json:"startTime"` // coded hhmm
	EndTime   int            `json:"endTime"`   // coded hhmm
	CellState string         `json:"cellState"` // REGULAR, CANCEL, EXAM, ...
	Subjects  []UntisElement `json:"subjects"`
	Rooms     []UntisElement `json:"rooms"`
}

// Homework is a free-text assignment attached to a lesson instance.
// It is matched to a Lesson by equal LessonID and equal date.
type Homework struct {
	LessonID int64  `json:"lessonId"`
	Date     int    `json:"date"` // yyyymmdd
	Text     string `json:"text"`
}

// UntisClient is the timetable collaborator.
type UntisClient interface {
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	TimetableForWeek(ctx context.Context, anchor time.Time) ([]Lesson, error)
	Homeworks(ctx context.Context, start, end time.Time) ([]Homework, error)
}

// Untis is a WebUntis JSON-RPC client.
type Untis struct {
	httpClient *http.Client
	baseURL    string
	school     string
	username   string
	password   string
	sessionID  string
}

// NewUntis creates a WebUntis client from config.
func NewUntis(cfg UntisConfig) *Untis {
	return &Untis{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    "https://" + cfg.Host,
		school:     cfg.School,
		username:   cfg.Username,
		password:   cfg.Password,
	}
}

type rpcRequest struct {
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	JSONRPC string `json:"jsonrpc"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// call performs a JSON-RPC request and decodes the result into out.
func (u *Untis) call(ctx context.Context, method string, params, out any) error {
	payload, err := json.Marshal(rpcRequest{
		ID:      "untiscal",
		Method:  method,
		Params:  params,
		JSONRPC: "2.0",
	})
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", method, err)
	}

	url := u.baseURL + "/WebUntis/jsonrpc.do?school=" + u.school
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if u.sessionID != "" {
		req.Header.Set("Cookie", "JSESSIONID="+u.sessionID)
	}

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s request failed: HTTP %d", method, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", method, err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("%s failed: %s (code %d)", method, rpcResp.Error.Message, rpcResp.Error.Code)
	}

	if out != nil {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return fmt.Errorf("failed to decode %s result: %w", method, err)
		}
	}

	return nil
}

// Login authenticates against WebUntis and retains the session id for
// subsequent calls.
func (u *Untis) Login(ctx context.Context) error {
	var result struct {
		SessionID string `json:"sessionId"`
	}

	err := u.call(ctx, "authenticate", map[string]string{
		"user":     u.username,
		"password": u.password,
		"client":   "untiscal",
	}, &result)
	if err != nil {
		return err
	}
	if result.SessionID == "" {
		return fmt.Errorf("authenticate returned no session id")
	}

	u.sessionID = result.SessionID
	return nil
}

// Logout ends the WebUntis session.
func (u *Untis) Logout(ctx context.Context) error {
	if u.sessionID == "" {
		return nil
	}
	err := u.call(ctx, "logout", map[string]string{}, nil)
	u.sessionID = ""
	return err
}

// TimetableForWeek fetches the user's own timetable for the week containing
// the anchor date.
func (u *Untis) TimetableForWeek(ctx context.Context, anchor time.Time) ([]Lesson, error) {
	var lessons []Lesson
	err := u.call(ctx, "getOwnTimetableForWeek", map[string]int{
		"date": untisDate(anchor),
	}, &lessons)
	if err != nil {
		return nil, err
	}
	return lessons, nil
}

// Homeworks fetches assignments whose lessons fall between start and end.
func (u *Untis) Homeworks(ctx context.Context, start, end time.Time) ([]Homework, error) {
	var result struct {
		Homeworks []Homework `json:"homeworks"`
	}
	err := u.call(ctx, "getHomeWorks", map[string]int{
		"startDate": untisDate(start),
		"endDate":   untisDate(end),
	}, &result)
	if err != nil {
		return nil, err
	}
	return result.Homeworks, nil
}

// untisDate converts a time to the coded yyyymmdd integer WebUntis uses.
func untisDate(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

// untisDateTime converts a coded yyyymmdd date and hhmm time-of-day into an
// absolute timestamp in the given location. Pure function; the mapper and
// the past-lesson filter both depend on it being deterministic.
func untisDateTime(date, hhmm int, loc *time.Location) time.Time {
	year := date / 10000
	month := (date / 100) % 100
	day := date % 100
	return time.Date(year, time.Month(month), day, hhmm/100, hhmm%100, 0, 0, loc)
}
