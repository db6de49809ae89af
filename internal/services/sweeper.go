package services

import (
	"context"
	"log/slog"
	"time"

	"invitehub/internal/domain"
)

// ExpirySweeper periodically transitions stale PENDING invitations to
// EXPIRED so tokens stop working even if nobody ever tries to accept them.
type ExpirySweeper struct {
	service  domain.InvitationService
	logger   *slog.Logger
	interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewExpirySweeper creates a sweeper with the given interval.
// If interval is 0 or negative, defaults to 1 hour.
func NewExpirySweeper(service domain.InvitationService, logger *slog.Logger, interval time.Duration) *ExpirySweeper {
	if interval <= 0 {
		interval = 1 * time.Hour
	}
	return &ExpirySweeper{
		service:  service,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Non-blocking; call Stop to shut it down.
func (s *ExpirySweeper) Start() {
	go s.run()
	s.logger.Info("expiry sweeper started", "interval", s.interval)
}

// Stop shuts down the worker and blocks until an in-progress sweep finishes.
func (s *ExpirySweeper) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.logger.Info("expiry sweeper stopped")
}

func (s *ExpirySweeper) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Sweep immediately on startup
	s.sweep()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

func (s *ExpirySweeper) sweep() {
	count, err := s.service.ExpireOldInvitations(context.Background())
	if err != nil {
		s.logger.Error("expiry sweep failed", "error", err)
		return
	}
	if count > 0 {
		s.logger.Info("expiry sweep completed", "expired", count)
	}
}
