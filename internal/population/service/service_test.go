package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks EventPublisher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"acspop/internal/population/census"
	censusmocks "acspop/internal/population/census/mocks"
	"acspop/internal/population/events"
	"acspop/internal/population/metrics"
	"acspop/internal/population/models"
	sinkmocks "acspop/internal/population/sink/mocks"
	"acspop/internal/population/service/mocks"
	dErrors "acspop/pkg/domain-errors"
	"acspop/pkg/requestcontext"
)

// =============================================================================
// Ingester Test Suite
// =============================================================================
// Collaborators are mocked so each test controls exactly which concept
// fails and can assert that nothing reaches the sink on failure.

type IngesterSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	source    *censusmocks.MockSource
	resolver  *censusmocks.MockResolver
	sink      *sinkmocks.MockSink
	publisher *mocks.MockEventPublisher
	metrics   *metrics.Metrics
	ingester  *Ingester
}

func TestIngesterSuite(t *testing.T) {
	suite.Run(t, new(IngesterSuite))
}

func (s *IngesterSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.source = censusmocks.NewMockSource(s.ctrl)
	s.resolver = censusmocks.NewMockResolver(s.ctrl)
	s.sink = sinkmocks.NewMockSink(s.ctrl)
	s.publisher = mocks.NewMockEventPublisher(s.ctrl)
	s.metrics = metrics.NewWithRegistry(prometheus.NewRegistry())

	var err error
	s.ingester, err = New(s.source, s.resolver, s.sink,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(s.metrics),
		WithPublisher(s.publisher),
	)
	s.Require().NoError(err)
}

func (s *IngesterSuite) TearDownTest() {
	s.ctrl.Finish()
}

var (
	hispanicVars = census.VariableMap{
		"B03002_003E": {models.NotHispanicOrLatino, "White alone"},
		"B03002_013E": {models.HispanicOrLatino, "White alone"},
	}
	sexAgeVars = census.VariableMap{
		"B01001_003E": {"Male", "Under 5 years"},
		"B01001_027E": {"Female", "Under 5 years"},
	}
)

func rawTable(level models.Level, codes []string, counts ...string) *census.RawTable {
	header := append([]string{census.ColName}, codes...)
	header = append(header, census.ColState)
	record := append([]string{"Alabama"}, counts...)
	record = append(record, "01")
	if level == models.LevelCounty {
		header = append(header, census.ColCounty)
		record[0] = "Autauga County, Alabama"
		record = append(record, "001")
	}
	cells := make([]*string, len(record))
	for i := range record {
		cells[i] = &record[i]
	}
	return &census.RawTable{Header: header, Records: [][]*string{cells}}
}

// expectInputs serves every concept of level; hispanicRace replaces the raw
// race string of the Hispanic-by-race table.
func (s *IngesterSuite) expectInputs(level models.Level, hispanicRace string) {
	s.resolver.EXPECT().VarsForGroup(gomock.Any(), gomock.Any(), models.ConceptDepth).
		DoAndReturn(func(_ context.Context, concept string, _ int) (census.VariableMap, error) {
			if concept == models.HispanicByRace.Name {
				vars := census.VariableMap{}
				for code, labels := range hispanicVars {
					vars[code] = []string{labels[0], hispanicRace}
				}
				return vars, nil
			}
			return sexAgeVars, nil
		}).AnyTimes()

	s.source.EXPECT().Load(gomock.Any(), gomock.Any(), level).
		DoAndReturn(func(_ context.Context, concept models.Concept, level models.Level) (*census.RawTable, error) {
			if concept == models.HispanicByRace {
				return rawTable(level, []string{"B03002_003E", "B03002_013E"}, "900", "100"), nil
			}
			return rawTable(level, []string{"B01001_003E", "B01001_027E"}, "60", "40"), nil
		}).AnyTimes()
}

func (s *IngesterSuite) TestNew() {
	s.Run("nil source returns error", func() {
		_, err := New(nil, s.resolver, s.sink)
		s.ErrorContains(err, "source is required")
	})

	s.Run("nil resolver returns error", func() {
		_, err := New(s.source, nil, s.sink)
		s.ErrorContains(err, "resolver is required")
	})

	s.Run("nil sink returns error", func() {
		_, err := New(s.source, s.resolver, nil)
		s.ErrorContains(err, "sink is required")
	})
}

func (s *IngesterSuite) TestRunLevelPublishesEveryRelation() {
	runID := uuid.New()
	at := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(requestcontext.WithRunID(context.Background(), runID), at)
	s.expectInputs(models.LevelState, "White alone")

	var published []models.Table
	s.sink.EXPECT().Publish(gomock.Any(), models.LevelState, gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ models.Level, tables []models.Table) error {
			s.Equal(runID, requestcontext.RunID(ctx))
			published = tables
			return nil
		})

	var event events.RelationsPublished
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e events.RelationsPublished) error {
			event = e
			return nil
		})

	res, err := s.ingester.RunLevel(ctx, models.LevelState)
	s.Require().NoError(err)

	names := make([]string, 0, len(published))
	for _, t := range published {
		names = append(names, t.Name)
	}
	s.Equal(models.RelationNames(models.LevelState), names)
	s.Equal(runID, res.RunID)

	want := events.RelationsPublished{
		Type:        events.TypeRelationsPublished,
		RunID:       runID.String(),
		Level:       models.LevelState,
		Relations:   res.Relations,
		PublishedAt: at,
	}
	if diff := cmp.Diff(want, event); diff != "" {
		s.Failf("event mismatch", "(-want +got):\n%s", diff)
	}

	bySex := published[4]
	s.Equal("by_sex_state", bySex.Name)
	s.InDelta(3, testutil.ToFloat64(s.metrics.RowsPublished.WithLabelValues("state", "by_sex_state")), 0)
	s.Len(bySex.Rows, 3)
}

func (s *IngesterSuite) TestRunLevelStampsRunWhenMissing() {
	s.expectInputs(models.LevelCounty, "White alone")
	s.sink.EXPECT().Publish(gomock.Any(), models.LevelCounty, gomock.Any()).Return(nil)
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

	res, err := s.ingester.RunLevel(context.Background(), models.LevelCounty)
	s.Require().NoError(err)
	s.NotEqual(uuid.Nil, res.RunID)
	s.Equal(models.LevelCounty, res.Level)
}

func (s *IngesterSuite) TestRunLevelFailures() {
	s.Run("unknown race string publishes nothing", func() {
		s.expectInputs(models.LevelState, "Martian alone")

		_, err := s.ingester.RunLevel(context.Background(), models.LevelState)
		s.True(dErrors.HasCode(err, dErrors.CodeMapping), "got %v", err)
		s.InDelta(1, testutil.ToFloat64(s.metrics.RunFailures.WithLabelValues("state", "mapping_error")), 0)
	})

	s.Run("invalid level", func() {
		_, err := s.ingester.RunLevel(context.Background(), models.Level("tract"))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *IngesterSuite) TestRunLevelSinkFailure() {
	s.expectInputs(models.LevelState, "White alone")
	sinkErr := errors.New("connection reset")
	s.sink.EXPECT().Publish(gomock.Any(), models.LevelState, gomock.Any()).Return(sinkErr)

	_, err := s.ingester.RunLevel(context.Background(), models.LevelState)
	s.ErrorIs(err, sinkErr)
	s.ErrorContains(err, "publish state relations")
	s.InDelta(1, testutil.ToFloat64(s.metrics.RunFailures.WithLabelValues("state", "internal_error")), 0)
}

func (s *IngesterSuite) TestEventFailureDoesNotFailRun() {
	s.expectInputs(models.LevelState, "White alone")
	s.sink.EXPECT().Publish(gomock.Any(), models.LevelState, gomock.Any()).Return(nil)
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))

	res, err := s.ingester.RunLevel(context.Background(), models.LevelState)
	s.Require().NoError(err)
	s.Len(res.Relations, 5)
}

func (s *IngesterSuite) TestRunAllKeepsLevelsIndependent() {
	s.resolver.EXPECT().VarsForGroup(gomock.Any(), gomock.Any(), models.ConceptDepth).
		DoAndReturn(func(_ context.Context, concept string, _ int) (census.VariableMap, error) {
			if concept == models.HispanicByRace.Name {
				return hispanicVars, nil
			}
			return sexAgeVars, nil
		}).AnyTimes()
	s.source.EXPECT().Load(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, concept models.Concept, level models.Level) (*census.RawTable, error) {
			if level == models.LevelState {
				return nil, dErrors.New(dErrors.CodeNotFound, "raw table not downloaded")
			}
			if concept == models.HispanicByRace {
				return rawTable(level, []string{"B03002_003E", "B03002_013E"}, "900", "100"), nil
			}
			return rawTable(level, []string{"B01001_003E", "B01001_027E"}, "60", "40"), nil
		}).AnyTimes()

	var countyRun uuid.UUID
	s.sink.EXPECT().Publish(gomock.Any(), models.LevelCounty, gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ models.Level, _ []models.Table) error {
			countyRun = requestcontext.RunID(ctx)
			return nil
		})
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

	runID := uuid.New()
	ctx := requestcontext.WithRunID(context.Background(), runID)
	results, err := s.ingester.RunAll(ctx, []models.Level{models.LevelState, models.LevelCounty})

	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	s.True(strings.Contains(err.Error(), "level state"))
	s.Require().Len(results, 2)
	s.Nil(results[0])
	s.Require().NotNil(results[1])
	s.Equal(runID, results[1].RunID)
	s.Equal(runID, countyRun)
}

func (s *IngesterSuite) TestRunAllSuccess() {
	s.expectInputs(models.LevelState, "White alone")
	s.expectInputs(models.LevelCounty, "White alone")
	s.sink.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(2)
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	results, err := s.ingester.RunAll(context.Background(), []models.Level{models.LevelState, models.LevelCounty})
	s.Require().NoError(err)
	s.Equal(results[0].RunID, results[1].RunID)

	opts := cmpopts.IgnoreFields(LevelResult{}, "Duration", "Relations", "RunID")
	s.Empty(cmp.Diff(&LevelResult{Level: models.LevelCounty}, results[1], opts))
}
