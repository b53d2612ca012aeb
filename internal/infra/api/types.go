package api

import (
	"fmt"

	"github.com/vietddude/spinner/internal/core/domain"
)

type initDataRequest struct {
	InitData string `json:"initData"`
}

type spendRequest struct {
	InitData string    `json:"initData"`
	Data     spendData `json:"data"`
}

type spendData struct {
	Timestamp int64 `json:"timestamp"`
	IsClose   *bool `json:"isClose"`
}

type upgradeRequest struct {
	InitData  string `json:"initData"`
	SpinnerID int64  `json:"spinnerId"`
}

type openBoxRequest struct {
	InitData string `json:"initData"`
	BoxID    int64  `json:"boxId"`
}

type requirementRequest struct {
	InitData      string `json:"initData"`
	RequirementID int64  `json:"requirementId"`
}

type adRequest struct {
	InitData string `json:"initData"`
	Hash     string `json:"hash,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type registerResponse struct {
	Message string `json:"message"`
	UserID  int64  `json:"user_id"`
}

type boxesResponse struct {
	Boxes []struct {
		ID       int64  `json:"id"`
		Name     string `json:"name"`
		OpenTime string `json:"open_time"`
	} `json:"boxes"`
}

type openBoxResponse struct {
	Message    string `json:"message"`
	RewardText string `json:"reward_text"`
}

type requirementResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type adResponse struct {
	Hash   string  `json:"hash"`
	Reward float64 `json:"reward"`
}

type initDataResponse struct {
	Message  string      `json:"message"`
	InitData wireProfile `json:"initData"`
}

type wireProfile struct {
	User struct {
		ID      int64   `json:"id"`
		Balance float64 `json:"balance"`
	} `json:"user"`
	Spinners []wireSpinner        `json:"spinners"`
	Levels   []domain.Level       `json:"levels"`
	Sections []domain.TaskSection `json:"sections"`
}

type wireSpinner struct {
	ID            int64   `json:"id"`
	HP            int     `json:"hp"`
	Level         int     `json:"level"`
	IsBroken      bool    `json:"isBroken"`
	EndRepairTime *string `json:"endRepairTime"`
}

func (p wireProfile) toDomain() (*domain.Profile, error) {
	profile := &domain.Profile{
		UserID:   p.User.ID,
		Balance:  p.User.Balance,
		Levels:   p.Levels,
		Sections: p.Sections,
		Spinners: make([]domain.SpinnerState, 0, len(p.Spinners)),
	}
	for _, s := range p.Spinners {
		ends, err := parseRepairTime(s.EndRepairTime)
		if err != nil {
			return nil, fmt.Errorf("spinner %d endRepairTime: %w", s.ID, err)
		}
		profile.Spinners = append(profile.Spinners, domain.SpinnerState{
			ID:           s.ID,
			HP:           s.HP,
			Level:        s.Level,
			Broken:       s.IsBroken,
			RepairEndsAt: ends,
		})
	}
	return profile, nil
}
