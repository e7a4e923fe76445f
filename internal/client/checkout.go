package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/Shivanand-hulikatti/meeting-registration/internal/cart"
	"github.com/Shivanand-hulikatti/meeting-registration/internal/model"
)

// ErrNoLine is returned when the cart holds nothing for the meeting.
var ErrNoLine = errors.New("no cart line for meeting")

// Submitter commits a staged entry-set.
type Submitter interface {
	Submit(ctx context.Context, meetingID string, entries []model.EventEntryDraft) (*model.Registration, error)
}

// Checkout submits the cart line for meetingID and removes it only after the
// server has committed the registration. On any failure the line is kept.
func Checkout(ctx context.Context, c *cart.Cart, api Submitter, meetingID string) (*model.Registration, error) {
	line, ok := c.Line(meetingID)
	if !ok {
		return nil, ErrNoLine
	}

	reg, err := api.Submit(ctx, line.MeetingID, line.Entries)
	if err != nil {
		return nil, fmt.Errorf("checkout %s: %w", meetingID, err)
	}

	if err := c.Remove(meetingID); err != nil {
		return reg, fmt.Errorf("registration %s committed but cart not cleared: %w", reg.ID, err)
	}
	return reg, nil
}
