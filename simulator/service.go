package simulator

import (
	"context"

	"github.com/byzantron-research/aibyz-dataset/db"
	"github.com/byzantron-research/aibyz-dataset/time/epochs"
	"github.com/pkg/errors"
)

// ServiceConfig holds the dependencies of a watch-mode simulator service.
type ServiceConfig struct {
	Params      *Parameters
	Database    db.Database
	DatasetRoot string
	Ticker      epochs.Ticker
}

// Service drives the simulator from an epoch ticker in watch mode: every
// tick rolls one more epoch of synthetic behavior for the same population.
type Service struct {
	cfg       *ServiceConfig
	ctx       context.Context
	cancel    context.CancelFunc
	sim       *Simulator
	nextEpoch uint64
	runErr    error
}

// NewService creates the watch-mode simulator service.
func NewService(ctx context.Context, cfg *ServiceConfig) (*Service, error) {
	sim, err := New(cfg.Database, cfg.Params)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Service{cfg: cfg, ctx: ctx, cancel: cancel, sim: sim}, nil
}

// Start begins rolling one synthetic epoch per tick.
func (s *Service) Start() {
	log.WithField("agents", len(s.sim.agents)).Info("Starting simulator service")
	go func() {
		for {
			select {
			case <-s.ctx.Done():
				return
			case <-s.cfg.Ticker.C():
				if err := s.tick(); err != nil {
					log.WithError(err).Error("Could not generate synthetic epoch")
					s.runErr = err
				}
			}
		}
	}()
}

func (s *Service) tick() error {
	rng := randForEpoch(s.sim.params.Seed, s.nextEpoch)
	rows := s.sim.generateEpoch(s.nextEpoch, rng)
	s.nextEpoch++
	if err := s.cfg.Database.SaveSyntheticRows(s.ctx, rows); err != nil {
		return errors.Wrap(err, "could not persist synthetic rows")
	}
	rowsGenerated.Add(float64(len(rows)))
	log.WithField("epoch", s.nextEpoch-1).WithField("rows", len(rows)).Debug("Generated synthetic epoch")
	return nil
}

// Stop the service.
func (s *Service) Stop() error {
	s.cancel()
	s.cfg.Ticker.Done()
	return nil
}

// Status returns the last generation error, if any.
func (s *Service) Status() error {
	return s.runErr
}
