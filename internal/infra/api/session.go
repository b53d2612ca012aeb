package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/vietddude/spinner/internal/core/domain"
	"github.com/vietddude/spinner/internal/spin"
)

// spendFactor is the multiplier the game client applies to clicks before
// reporting them as a "timestamp".
const spendFactor = 86559566

var (
	// ErrUnexpectedResponse is returned when a 2xx body does not carry the
	// message the operation expects.
	ErrUnexpectedResponse = errors.New("unexpected response")

	// ErrNoSpinner is returned when the profile lists no spinner.
	ErrNoSpinner = errors.New("account has no spinner")
)

// Session binds a Client to one account's initData.
type Session struct {
	client   *Client
	initData string
}

// NewSession creates a session for one account.
func NewSession(c *Client, initData string) *Session {
	return &Session{client: c, initData: initData}
}

// Client returns the underlying client.
func (s *Session) Client() *Client {
	return s.client
}

// CheckIP returns the egress IP of the session's proxy.
func (s *Session) CheckIP(ctx context.Context) (string, error) {
	return s.client.CheckIP(ctx)
}

// Close releases the client's idle connections.
func (s *Session) Close() error {
	return s.client.Close()
}

// RegisterResult is the outcome of a registration call.
type RegisterResult struct {
	UserID            int64
	AlreadyRegistered bool
}

// Register makes sure the account exists on the server.
func (s *Session) Register(ctx context.Context) (*RegisterResult, error) {
	var resp registerResponse
	if err := s.client.postAPI(ctx, "/register", initDataRequest{InitData: s.initData}, &resp); err != nil {
		return nil, err
	}

	switch resp.Message {
	case "success":
		return &RegisterResult{UserID: resp.UserID}, nil
	case "User already registered":
		return &RegisterResult{UserID: resp.UserID, AlreadyRegistered: true}, nil
	}
	return nil, fmt.Errorf("%w: register: %q", ErrUnexpectedResponse, resp.Message)
}

// Profile reads balance, spinners, levels and task sections.
func (s *Session) Profile(ctx context.Context) (*domain.Profile, error) {
	var resp initDataResponse
	if err := s.client.postBack(ctx, "/api/init-data", initDataRequest{InitData: s.initData}, &resp); err != nil {
		return nil, err
	}
	if !isDataReceived(resp.Message) {
		return nil, fmt.Errorf("%w: init-data: %q", ErrUnexpectedResponse, resp.Message)
	}
	return resp.InitData.toDomain()
}

// QueryState reads the first spinner's state.
func (s *Session) QueryState(ctx context.Context) (domain.SpinnerState, error) {
	profile, err := s.Profile(ctx)
	if err != nil {
		return domain.SpinnerState{}, err
	}
	if len(profile.Spinners) == 0 {
		return domain.SpinnerState{}, ErrNoSpinner
	}
	return profile.Spinners[0], nil
}

// Health returns the rolling health of the session's client.
func (s *Session) Health() HealthStatus {
	return s.client.GetHealth()
}

// ForSpinner returns a view of the session whose state reads follow the
// spinner with the given ID.
func (s *Session) ForSpinner(spinnerID int64) spin.ResourceService {
	return &spinnerSession{Session: s, spinnerID: spinnerID}
}

type spinnerSession struct {
	*Session
	spinnerID int64
}

func (s *spinnerSession) QueryState(ctx context.Context) (domain.SpinnerState, error) {
	profile, err := s.Profile(ctx)
	if err != nil {
		return domain.SpinnerState{}, err
	}
	for _, sp := range profile.Spinners {
		if sp.ID == s.spinnerID {
			return sp, nil
		}
	}
	return domain.SpinnerState{}, fmt.Errorf("%w: id %d", ErrNoSpinner, s.spinnerID)
}

// Spend reports one spin of amount HP. A 400 means the server refused the
// amount and is returned wrapping spin.ErrRejected.
func (s *Session) Spend(ctx context.Context, amount int) error {
	req := spendRequest{
		InitData: s.initData,
		Data: spendData{
			Timestamp: int64(amount) * spendFactor,
			IsClose:   nil,
		},
	}
	err := s.client.postBack(ctx, "/api/upd-data", req, nil)
	if IsStatus(err, http.StatusBadRequest) {
		return fmt.Errorf("%w: %w", spin.ErrRejected, err)
	}
	return err
}

// Repair asks the server to restore the spinner's HP.
func (s *Session) Repair(ctx context.Context) error {
	var resp messageResponse
	if err := s.client.postBack(ctx, "/api/repair-spinner", initDataRequest{InitData: s.initData}, &resp); err != nil {
		return err
	}
	if !isDataReceived(resp.Message) {
		return fmt.Errorf("%w: repair: %q", ErrUnexpectedResponse, resp.Message)
	}
	return nil
}

// UpgradeSpinner buys the next level for a spinner.
func (s *Session) UpgradeSpinner(ctx context.Context, spinnerID int64) error {
	var resp messageResponse
	req := upgradeRequest{InitData: s.initData, SpinnerID: spinnerID}
	if err := s.client.postBack(ctx, "/api/upgrade-spinner", req, &resp); err != nil {
		return err
	}
	if resp.Message != "The spinner is upgraded." {
		return fmt.Errorf("%w: upgrade: %q", ErrUnexpectedResponse, resp.Message)
	}
	return nil
}

// ListBoxes returns the account's reward boxes.
func (s *Session) ListBoxes(ctx context.Context) ([]domain.Box, error) {
	var resp boxesResponse
	if err := s.client.postAPI(ctx, "/get_data", initDataRequest{InitData: s.initData}, &resp); err != nil {
		return nil, err
	}

	boxes := make([]domain.Box, 0, len(resp.Boxes))
	for _, b := range resp.Boxes {
		box := domain.Box{ID: b.ID, Name: b.Name}
		if b.OpenTime != "" {
			t, err := http.ParseTime(b.OpenTime)
			if err != nil {
				return nil, fmt.Errorf("box %d open_time %q: %w", b.ID, b.OpenTime, err)
			}
			box.OpenTime = t
		}
		boxes = append(boxes, box)
	}
	return boxes, nil
}

// OpenBox claims a box.
func (s *Session) OpenBox(ctx context.Context, boxID int64) (*domain.BoxReward, error) {
	var resp openBoxResponse
	req := openBoxRequest{InitData: s.initData, BoxID: boxID}
	if err := s.client.postAPI(ctx, "/open_box", req, &resp); err != nil {
		return nil, err
	}
	if resp.Message != "ok" {
		return nil, fmt.Errorf("%w: open_box: %q", ErrUnexpectedResponse, resp.Message)
	}
	return &domain.BoxReward{
		BoxID: boxID,
		Text:  strings.ReplaceAll(resp.RewardText, "<br/>", " "),
	}, nil
}

// CheckRequirement asks the server to verify a task requirement.
func (s *Session) CheckRequirement(ctx context.Context, requirementID int64) (bool, error) {
	var resp requirementResponse
	req := requirementRequest{InitData: s.initData, RequirementID: requirementID}
	if err := s.client.postAPI(ctx, "/check_requirement", req, &resp); err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Message() != "" {
			return false, fmt.Errorf("check requirement %d: %s", requirementID, se.Message())
		}
		return false, err
	}
	return resp.Success, nil
}

// StartAd begins an ad view and returns its hash.
func (s *Session) StartAd(ctx context.Context) (string, error) {
	var resp adResponse
	if err := s.client.postAPI(ctx, "/adsgram", adRequest{InitData: s.initData}, &resp); err != nil {
		return "", err
	}
	return resp.Hash, nil
}

// CompleteAd finishes the ad view identified by hash and returns the reward.
func (s *Session) CompleteAd(ctx context.Context, hash string) (int64, error) {
	var resp adResponse
	if err := s.client.postAPI(ctx, "/adsgram", adRequest{InitData: s.initData, Hash: hash}, &resp); err != nil {
		return 0, err
	}
	return int64(resp.Reward), nil
}

// The backend answers init-data with or without a trailing period.
func isDataReceived(msg string) bool {
	return strings.TrimSuffix(msg, ".") == "Data received successfully"
}

func parseRepairTime(raw *string) (time.Time, error) {
	if raw == nil || *raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, *raw)
}
