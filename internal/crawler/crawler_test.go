package crawler_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/nft-datastore/internal/crawler"
	"github.com/feral-file/nft-datastore/internal/domain"
	"github.com/feral-file/nft-datastore/internal/logger"
	"github.com/feral-file/nft-datastore/internal/mocks"
)

const (
	testNFTAddress = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	testFrom       = "0x1111111111111111111111111111111111111111"
	testTo         = "0x2222222222222222222222222222222222222222"
)

func TestMain(m *testing.M) {
	// Initialize logger for tests
	err := logger.Initialize(logger.Config{
		Debug: false,
	})
	if err != nil {
		panic(err)
	}

	code := m.Run()
	os.Exit(code)
}

// testCrawlerMocks contains all the mocks needed for testing the crawler
type testCrawlerMocks struct {
	ctrl     *gomock.Controller
	store    *mocks.MockStore
	fetcher  *mocks.MockFetcher
	resolver *mocks.MockMetadataResolver
	clock    *mocks.MockClock
	crawler  crawler.Crawler
}

func defaultConfig() crawler.Config {
	return crawler.Config{
		EventType:     domain.EventTypeTransfer,
		StartBlock:    100,
		BatchBlocks:   50,
		Confirmations: 10,
		PollInterval:  time.Second,
		MaxRetries:    2,
		RetryInterval: time.Millisecond,
	}
}

// setupTestCrawler creates all the mocks and crawler for testing
func setupTestCrawler(t *testing.T, cfg crawler.Config) *testCrawlerMocks {
	ctrl := gomock.NewController(t)

	tm := &testCrawlerMocks{
		ctrl:     ctrl,
		store:    mocks.NewMockStore(ctrl),
		fetcher:  mocks.NewMockFetcher(ctrl),
		resolver: mocks.NewMockMetadataResolver(ctrl),
		clock:    mocks.NewMockClock(ctrl),
	}

	tm.crawler = crawler.NewCrawler(tm.store, tm.fetcher, tm.resolver, cfg, tm.clock)

	return tm
}

// tearDownTestCrawler cleans up the test mocks
func tearDownTestCrawler(tm *testCrawlerMocks) {
	tm.ctrl.Finish()
}

func transferEvent(id string, block uint64) domain.NFTEvent {
	return domain.NFTEvent{
		EventID:          id,
		EventType:        domain.EventTypeTransfer,
		TransactionHash:  "0xabc",
		BlockNumber:      block,
		NFTAddress:       testNFTAddress,
		TokenID:          "1",
		FromAddress:      testFrom,
		ToAddress:        testTo,
		TransactionValue: "0",
		Timestamp:        time.Unix(1700000000, 0).UTC(),
	}
}

func TestCrawler_RunOnce_StartsFromStartBlock_WhenNoCheckpoint(t *testing.T) {
	tm := setupTestCrawler(t, defaultConfig())
	defer tearDownTestCrawler(tm)

	ctx := context.Background()
	events := []domain.NFTEvent{transferEvent("0xabc-0", 120), transferEvent("0xabc-1", 130)}

	gomock.InOrder(
		tm.store.EXPECT().GetOffset(ctx, domain.EventTypeTransfer).Return(uint64(0), false, nil),
		tm.fetcher.EXPECT().LatestBlock(ctx).Return(uint64(1000), nil),
		tm.fetcher.EXPECT().FetchEvents(ctx, domain.EventTypeTransfer, uint64(100), uint64(149)).Return(events, nil),
		tm.store.EXPECT().InsertEvents(ctx, events).Return(nil),
		tm.store.EXPECT().RecordOffset(ctx, domain.EventTypeTransfer, uint64(149)).Return(nil),
	)

	processed, err := tm.crawler.RunOnce(ctx)

	assert.NoError(t, err)
	assert.True(t, processed)
}

func TestCrawler_RunOnce_ResumesAfterCheckpoint(t *testing.T) {
	tm := setupTestCrawler(t, defaultConfig())
	defer tearDownTestCrawler(tm)

	ctx := context.Background()

	gomock.InOrder(
		tm.store.EXPECT().GetOffset(ctx, domain.EventTypeTransfer).Return(uint64(150), true, nil),
		tm.fetcher.EXPECT().LatestBlock(ctx).Return(uint64(1000), nil),
		tm.fetcher.EXPECT().FetchEvents(ctx, domain.EventTypeTransfer, uint64(151), uint64(200)).Return(nil, nil),
		tm.store.EXPECT().InsertEvents(ctx, []domain.NFTEvent{}).Return(nil),
		tm.store.EXPECT().RecordOffset(ctx, domain.EventTypeTransfer, uint64(200)).Return(nil),
	)

	processed, err := tm.crawler.RunOnce(ctx)

	assert.NoError(t, err)
	assert.True(t, processed)
}

func TestCrawler_RunOnce_ClampsRangeToConfirmedHead(t *testing.T) {
	tm := setupTestCrawler(t, defaultConfig())
	defer tearDownTestCrawler(tm)

	ctx := context.Background()

	gomock.InOrder(
		tm.store.EXPECT().GetOffset(ctx, domain.EventTypeTransfer).Return(uint64(150), true, nil),
		tm.fetcher.EXPECT().LatestBlock(ctx).Return(uint64(170), nil),
		tm.fetcher.EXPECT().FetchEvents(ctx, domain.EventTypeTransfer, uint64(151), uint64(160)).Return(nil, nil),
		tm.store.EXPECT().InsertEvents(ctx, gomock.Any()).Return(nil),
		tm.store.EXPECT().RecordOffset(ctx, domain.EventTypeTransfer, uint64(160)).Return(nil),
	)

	processed, err := tm.crawler.RunOnce(ctx)

	assert.NoError(t, err)
	assert.True(t, processed)
}

func TestCrawler_RunOnce_CaughtUp(t *testing.T) {
	tm := setupTestCrawler(t, defaultConfig())
	defer tearDownTestCrawler(tm)

	ctx := context.Background()

	tm.store.EXPECT().GetOffset(ctx, domain.EventTypeTransfer).Return(uint64(990), true, nil)
	tm.fetcher.EXPECT().LatestBlock(ctx).Return(uint64(1000), nil)

	processed, err := tm.crawler.RunOnce(ctx)

	assert.NoError(t, err)
	assert.False(t, processed)
}

func TestCrawler_RunOnce_HeadBelowConfirmations(t *testing.T) {
	tm := setupTestCrawler(t, defaultConfig())
	defer tearDownTestCrawler(tm)

	ctx := context.Background()

	tm.store.EXPECT().GetOffset(ctx, domain.EventTypeTransfer).Return(uint64(0), false, nil)
	tm.fetcher.EXPECT().LatestBlock(ctx).Return(uint64(5), nil)

	processed, err := tm.crawler.RunOnce(ctx)

	assert.NoError(t, err)
	assert.False(t, processed)
}

func TestCrawler_RunOnce_NoCheckpointWhenInsertEventsFails(t *testing.T) {
	tm := setupTestCrawler(t, defaultConfig())
	defer tearDownTestCrawler(tm)

	ctx := context.Background()
	events := []domain.NFTEvent{transferEvent("0xabc-0", 120)}

	tm.store.EXPECT().GetOffset(ctx, domain.EventTypeTransfer).Return(uint64(0), false, nil)
	tm.fetcher.EXPECT().LatestBlock(ctx).Return(uint64(1000), nil)
	tm.fetcher.EXPECT().FetchEvents(ctx, domain.EventTypeTransfer, uint64(100), uint64(149)).Return(events, nil)
	tm.store.EXPECT().InsertEvents(ctx, events).Return(domain.ErrStorageUnavailable)
	tm.store.EXPECT().RecordOffset(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	processed, err := tm.crawler.RunOnce(ctx)

	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	assert.False(t, processed)
}

func TestCrawler_RunOnce_ReturnsCheckpointError(t *testing.T) {
	tm := setupTestCrawler(t, defaultConfig())
	defer tearDownTestCrawler(tm)

	ctx := context.Background()

	tm.store.EXPECT().GetOffset(ctx, domain.EventTypeTransfer).Return(uint64(0), false, domain.ErrStorageUnavailable)

	processed, err := tm.crawler.RunOnce(ctx)

	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	assert.False(t, processed)
}

func TestCrawler_RunOnce_RetriesFetch(t *testing.T) {
	tm := setupTestCrawler(t, defaultConfig())
	defer tearDownTestCrawler(tm)

	ctx := context.Background()
	events := []domain.NFTEvent{transferEvent("0xabc-0", 120)}

	tm.store.EXPECT().GetOffset(ctx, domain.EventTypeTransfer).Return(uint64(0), false, nil)
	tm.fetcher.EXPECT().LatestBlock(ctx).Return(uint64(1000), nil)
	gomock.InOrder(
		tm.fetcher.EXPECT().FetchEvents(ctx, domain.EventTypeTransfer, uint64(100), uint64(149)).Return(nil, errors.New("rpc timeout")),
		tm.fetcher.EXPECT().FetchEvents(ctx, domain.EventTypeTransfer, uint64(100), uint64(149)).Return(events, nil),
	)
	tm.store.EXPECT().InsertEvents(ctx, events).Return(nil)
	tm.store.EXPECT().RecordOffset(ctx, domain.EventTypeTransfer, uint64(149)).Return(nil)

	processed, err := tm.crawler.RunOnce(ctx)

	assert.NoError(t, err)
	assert.True(t, processed)
}

func TestCrawler_RunOnce_GivesUpAfterMaxRetries(t *testing.T) {
	tm := setupTestCrawler(t, defaultConfig())
	defer tearDownTestCrawler(tm)

	ctx := context.Background()

	tm.store.EXPECT().GetOffset(ctx, domain.EventTypeTransfer).Return(uint64(0), false, nil)
	tm.fetcher.EXPECT().LatestBlock(ctx).Return(uint64(1000), nil)
	// First attempt plus two retries
	tm.fetcher.EXPECT().FetchEvents(ctx, domain.EventTypeTransfer, uint64(100), uint64(149)).
		Return(nil, errors.New("rpc timeout")).Times(3)

	processed, err := tm.crawler.RunOnce(ctx)

	assert.Error(t, err)
	assert.False(t, processed)
}

func TestCrawler_RunOnce_DropsInvalidEvents(t *testing.T) {
	tm := setupTestCrawler(t, defaultConfig())
	defer tearDownTestCrawler(tm)

	ctx := context.Background()

	good := transferEvent("0xabc-0", 120)
	badToken := transferEvent("0xabc-1", 121)
	badToken.TokenID = "not-a-number"
	wrongType := transferEvent("0xabc-2", 122)
	wrongType.EventType = domain.EventTypeMint
	wrongType.FromAddress = domain.ETHEREUM_ZERO_ADDRESS

	tm.store.EXPECT().GetOffset(ctx, domain.EventTypeTransfer).Return(uint64(0), false, nil)
	tm.fetcher.EXPECT().LatestBlock(ctx).Return(uint64(1000), nil)
	tm.fetcher.EXPECT().FetchEvents(ctx, domain.EventTypeTransfer, uint64(100), uint64(149)).
		Return([]domain.NFTEvent{good, badToken, wrongType}, nil)
	tm.store.EXPECT().InsertEvents(ctx, []domain.NFTEvent{good}).Return(nil)
	tm.store.EXPECT().RecordOffset(ctx, domain.EventTypeTransfer, uint64(149)).Return(nil)

	processed, err := tm.crawler.RunOnce(ctx)

	assert.NoError(t, err)
	assert.True(t, processed)
}

func TestCrawler_RunOnce_EnrichesUnseenContracts(t *testing.T) {
	cfg := defaultConfig()
	cfg.EnrichMetadata = true
	tm := setupTestCrawler(t, cfg)
	defer tearDownTestCrawler(tm)

	ctx := context.Background()
	otherAddress := "0x3333333333333333333333333333333333333333"

	first := transferEvent("0xabc-0", 120)
	second := transferEvent("0xabc-1", 121)
	second.NFTAddress = otherAddress
	events := []domain.NFTEvent{first, second}

	name := "Punks"
	symbol := "PNK"
	metadata := []domain.NFTMetadata{{Address: testNFTAddress, Name: &name, Symbol: &symbol}}

	gomock.InOrder(
		tm.store.EXPECT().GetOffset(ctx, domain.EventTypeTransfer).Return(uint64(0), false, nil),
		tm.fetcher.EXPECT().LatestBlock(ctx).Return(uint64(1000), nil),
		tm.fetcher.EXPECT().FetchEvents(ctx, domain.EventTypeTransfer, uint64(100), uint64(149)).Return(events, nil),
		tm.store.EXPECT().InsertEvents(ctx, events).Return(nil),
		tm.store.EXPECT().GetKnownNFTAddresses(ctx, []string{testNFTAddress, otherAddress}).
			Return(map[string]bool{otherAddress: true}, nil),
		tm.resolver.EXPECT().ResolveMetadata(ctx, []string{testNFTAddress}).Return(metadata, nil),
		tm.store.EXPECT().InsertEntities(ctx, metadata).Return(nil),
		tm.store.EXPECT().InsertLabels(ctx, gomock.Any()).DoAndReturn(
			func(_ context.Context, labels []domain.AddressLabel) error {
				require.Len(t, labels, 1)
				assert.Equal(t, domain.LabelKindERC721, labels[0].Kind)
				return nil
			}),
		tm.store.EXPECT().RecordOffset(ctx, domain.EventTypeTransfer, uint64(149)).Return(nil),
	)

	processed, err := tm.crawler.RunOnce(ctx)

	assert.NoError(t, err)
	assert.True(t, processed)
}

func TestCrawler_RunOnce_EnrichmentFailureDoesNotBlockCheckpoint(t *testing.T) {
	cfg := defaultConfig()
	cfg.EnrichMetadata = true
	tm := setupTestCrawler(t, cfg)
	defer tearDownTestCrawler(tm)

	ctx := context.Background()
	events := []domain.NFTEvent{transferEvent("0xabc-0", 120)}

	tm.store.EXPECT().GetOffset(ctx, domain.EventTypeTransfer).Return(uint64(0), false, nil)
	tm.fetcher.EXPECT().LatestBlock(ctx).Return(uint64(1000), nil)
	tm.fetcher.EXPECT().FetchEvents(ctx, domain.EventTypeTransfer, uint64(100), uint64(149)).Return(events, nil)
	tm.store.EXPECT().InsertEvents(ctx, events).Return(nil)
	tm.store.EXPECT().GetKnownNFTAddresses(ctx, []string{testNFTAddress}).Return(map[string]bool{}, nil)
	tm.resolver.EXPECT().ResolveMetadata(ctx, []string{testNFTAddress}).Return(nil, errors.New("rpc down"))
	tm.store.EXPECT().RecordOffset(ctx, domain.EventTypeTransfer, uint64(149)).Return(nil)

	processed, err := tm.crawler.RunOnce(ctx)

	assert.NoError(t, err)
	assert.True(t, processed)
}

func TestCrawler_Run_StopsOnContextCancel(t *testing.T) {
	tm := setupTestCrawler(t, defaultConfig())
	defer tearDownTestCrawler(tm)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Caught up on the first iteration, then cancelled while polling
	tm.store.EXPECT().GetOffset(gomock.Any(), domain.EventTypeTransfer).Return(uint64(990), true, nil)
	tm.fetcher.EXPECT().LatestBlock(gomock.Any()).Return(uint64(1000), nil)
	tm.clock.EXPECT().After(time.Second).DoAndReturn(func(time.Duration) <-chan time.Time {
		cancel()
		return make(chan time.Time)
	})

	err := tm.crawler.Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestCrawler_Run_PollsAfterCatchingUp(t *testing.T) {
	tm := setupTestCrawler(t, defaultConfig())
	defer tearDownTestCrawler(tm)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tick := make(chan time.Time, 1)
	tick <- time.Now()

	gomock.InOrder(
		// Iteration 1: behind the head
		tm.store.EXPECT().GetOffset(gomock.Any(), domain.EventTypeTransfer).Return(uint64(900), true, nil),
		tm.fetcher.EXPECT().LatestBlock(gomock.Any()).Return(uint64(1000), nil),
		tm.fetcher.EXPECT().FetchEvents(gomock.Any(), domain.EventTypeTransfer, uint64(901), uint64(950)).Return(nil, nil),
		tm.store.EXPECT().InsertEvents(gomock.Any(), gomock.Any()).Return(nil),
		tm.store.EXPECT().RecordOffset(gomock.Any(), domain.EventTypeTransfer, uint64(950)).Return(nil),
		// Iteration 2: caught up, poll once
		tm.store.EXPECT().GetOffset(gomock.Any(), domain.EventTypeTransfer).Return(uint64(990), true, nil),
		tm.fetcher.EXPECT().LatestBlock(gomock.Any()).Return(uint64(1000), nil),
		tm.clock.EXPECT().After(time.Second).Return(tick),
		// Iteration 3: still caught up, cancel while polling
		tm.store.EXPECT().GetOffset(gomock.Any(), domain.EventTypeTransfer).Return(uint64(990), true, nil),
		tm.fetcher.EXPECT().LatestBlock(gomock.Any()).Return(uint64(1000), nil),
		tm.clock.EXPECT().After(time.Second).DoAndReturn(func(time.Duration) <-chan time.Time {
			cancel()
			return make(chan time.Time)
		}),
	)

	err := tm.crawler.Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
}
