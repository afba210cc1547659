package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/feral-file/nft-datastore/internal/domain"
	"github.com/feral-file/nft-datastore/internal/store/schema"
)

const (
	testNFTAddress   = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	testOtherAddress = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
	testFromAddress  = "0x1111111111111111111111111111111111111111"
	testToAddress    = "0x2222222222222222222222222222222222222222"
)

// =============================================================================
// Test Data Builders
// =============================================================================

// buildTestEvent creates a test event of the given type
func buildTestEvent(id string, eventType domain.EventType, block uint64) domain.NFTEvent {
	from := testFromAddress
	if eventType == domain.EventTypeMint {
		from = domain.ETHEREUM_ZERO_ADDRESS
	}
	return domain.NFTEvent{
		EventID:          id,
		EventType:        eventType,
		TransactionHash:  "0xtx" + id,
		BlockNumber:      block,
		NFTAddress:       testNFTAddress,
		TokenID:          "42",
		FromAddress:      from,
		ToAddress:        testToAddress,
		TransactionValue: "1000000000000000000",
		Timestamp:        time.Unix(1700000000+int64(block), 0).UTC(),
	}
}

// buildTestMetadata creates a test metadata record
func buildTestMetadata(address, name, symbol string) domain.NFTMetadata {
	return domain.NFTMetadata{Address: address, Name: &name, Symbol: &symbol}
}

func eventIDs(events []domain.NFTEvent) []string {
	ids := make([]string, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.EventID)
	}
	return ids
}

func getAllEvents(t *testing.T, s Store, eventType domain.EventType) []domain.NFTEvent {
	events, err := s.GetEvents(context.Background(), eventType, EventQueryFilter{})
	require.NoError(t, err)
	return events
}

// =============================================================================
// Schema
// =============================================================================

func testInitializeIdempotent(t *testing.T, db *gorm.DB) {
	ctx := context.Background()

	// Already initialized by the harness; repeat calls are no-ops
	require.NoError(t, Initialize(ctx, db))
	require.NoError(t, Initialize(ctx, db))

	migrator := db.Migrator()
	for _, model := range schemaModels {
		assert.True(t, migrator.HasTable(model), "missing table for %T", model)
	}
	assert.True(t, migrator.HasIndex(&schema.NFT{}, "idx_nfts_address"))
	assert.True(t, migrator.HasIndex(&schema.NFT{}, "idx_nfts_address_name_symbol"))

	// Existing rows survive re-initialization
	s := NewSQLStore(db)
	require.NoError(t, s.InsertEvents(ctx, []domain.NFTEvent{buildTestEvent("a", domain.EventTypeTransfer, 10)}))
	require.NoError(t, s.Initialize(ctx))

	count, err := s.CountEvents(ctx, domain.EventTypeTransfer)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

// =============================================================================
// Events
// =============================================================================

func testInsertEventsIdempotent(t *testing.T, db *gorm.DB) {
	s := NewSQLStore(db)
	ctx := context.Background()

	batch := []domain.NFTEvent{
		buildTestEvent("a", domain.EventTypeTransfer, 10),
		buildTestEvent("b", domain.EventTypeMint, 11),
		buildTestEvent("c", domain.EventTypeTransfer, 12),
	}

	require.NoError(t, s.InsertEvents(ctx, batch))
	transfersOnce := getAllEvents(t, s, domain.EventTypeTransfer)
	mintsOnce := getAllEvents(t, s, domain.EventTypeMint)

	require.NoError(t, s.InsertEvents(ctx, batch))
	assert.Equal(t, transfersOnce, getAllEvents(t, s, domain.EventTypeTransfer))
	assert.Equal(t, mintsOnce, getAllEvents(t, s, domain.EventTypeMint))
}

func testInsertEventsPartition(t *testing.T, db *gorm.DB) {
	s := NewSQLStore(db)
	ctx := context.Background()

	batch := []domain.NFTEvent{
		buildTestEvent("t1", domain.EventTypeTransfer, 1),
		buildTestEvent("m1", domain.EventTypeMint, 2),
		buildTestEvent("t2", domain.EventTypeTransfer, 3),
		buildTestEvent("m2", domain.EventTypeMint, 4),
	}
	require.NoError(t, s.InsertEvents(ctx, batch))

	transfers := getAllEvents(t, s, domain.EventTypeTransfer)
	mints := getAllEvents(t, s, domain.EventTypeMint)

	assert.Equal(t, []string{"t1", "t2"}, eventIDs(transfers))
	assert.Equal(t, []string{"m1", "m2"}, eventIDs(mints))
	for _, e := range transfers {
		assert.Equal(t, domain.EventTypeTransfer, e.EventType)
	}
	for _, e := range mints {
		assert.Equal(t, domain.EventTypeMint, e.EventType)
	}
}

func testInsertEventsRedeliveryScenario(t *testing.T, db *gorm.DB) {
	s := NewSQLStore(db)
	ctx := context.Background()

	require.NoError(t, s.InsertEvents(ctx, []domain.NFTEvent{
		buildTestEvent("a", domain.EventTypeTransfer, 10),
		buildTestEvent("b", domain.EventTypeMint, 11),
	}))
	require.NoError(t, s.InsertEvents(ctx, []domain.NFTEvent{
		buildTestEvent("a", domain.EventTypeTransfer, 10),
		buildTestEvent("c", domain.EventTypeTransfer, 12),
	}))

	assert.Equal(t, []string{"a", "c"}, eventIDs(getAllEvents(t, s, domain.EventTypeTransfer)))
	assert.Equal(t, []string{"b"}, eventIDs(getAllEvents(t, s, domain.EventTypeMint)))
}

func testInsertEventsDuplicateWithinBatch(t *testing.T, db *gorm.DB) {
	s := NewSQLStore(db)
	ctx := context.Background()

	first := buildTestEvent("dup", domain.EventTypeTransfer, 10)
	second := buildTestEvent("dup", domain.EventTypeTransfer, 99)

	require.NoError(t, s.InsertEvents(ctx, []domain.NFTEvent{first, second}))

	events := getAllEvents(t, s, domain.EventTypeTransfer)
	require.Len(t, events, 1)
	assert.Equal(t, uint64(10), events[0].BlockNumber)
}

func testInsertEventsRoundTrip(t *testing.T, db *gorm.DB) {
	s := NewSQLStore(db)
	ctx := context.Background()

	event := buildTestEvent("rt", domain.EventTypeMint, 123)
	event.TokenID = "115792089237316195423570985008687907853269984665640564039457584007913129639935"
	require.NoError(t, s.InsertEvents(ctx, []domain.NFTEvent{event}))

	events := getAllEvents(t, s, domain.EventTypeMint)
	require.Len(t, events, 1)
	assert.Equal(t, event, events[0])
}

func testInsertEventsUnknownType(t *testing.T, db *gorm.DB) {
	s := NewSQLStore(db)
	ctx := context.Background()

	bad := buildTestEvent("x", domain.EventType("approval"), 10)
	err := s.InsertEvents(ctx, []domain.NFTEvent{
		buildTestEvent("a", domain.EventTypeTransfer, 10),
		bad,
	})
	assert.ErrorIs(t, err, domain.ErrUnknownEventType)

	// Nothing from the rejected batch is stored
	count, err := s.CountEvents(ctx, domain.EventTypeTransfer)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func testInsertEventsRollbackOnStorageError(t *testing.T, db *gorm.DB) {
	s := NewSQLStore(db)
	ctx := context.Background()

	// Transfers are written first, so the mints failure happens mid-transaction
	require.NoError(t, db.Migrator().DropTable(&schema.Mint{}))

	err := s.InsertEvents(ctx, []domain.NFTEvent{
		buildTestEvent("t1", domain.EventTypeTransfer, 10),
		buildTestEvent("m1", domain.EventTypeMint, 11),
		buildTestEvent("t2", domain.EventTypeTransfer, 12),
	})
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	assert.NotErrorIs(t, err, domain.ErrConstraintViolation)

	count, err := s.CountEvents(ctx, domain.EventTypeTransfer)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func testInsertEventsEmpty(t *testing.T, db *gorm.DB) {
	s := NewSQLStore(db)
	ctx := context.Background()

	assert.NoError(t, s.InsertEvents(ctx, nil))
	assert.NoError(t, s.InsertEvents(ctx, []domain.NFTEvent{}))
}

func testEventsWithoutEntity(t *testing.T, db *gorm.DB) {
	s := NewSQLStore(db)
	ctx := context.Background()

	// The nfts row does not exist; events are still accepted
	require.NoError(t, s.InsertEvents(ctx, []domain.NFTEvent{buildTestEvent("a", domain.EventTypeTransfer, 1)}))

	nft, err := s.GetNFT(ctx, testNFTAddress)
	require.NoError(t, err)
	assert.Nil(t, nft)
}

func testGetEventsFilter(t *testing.T, db *gorm.DB) {
	s := NewSQLStore(db)
	ctx := context.Background()

	other := buildTestEvent("o", domain.EventTypeTransfer, 15)
	other.NFTAddress = testOtherAddress
	require.NoError(t, s.InsertEvents(ctx, []domain.NFTEvent{
		buildTestEvent("e30", domain.EventTypeTransfer, 30),
		buildTestEvent("e10", domain.EventTypeTransfer, 10),
		buildTestEvent("e20", domain.EventTypeTransfer, 20),
		other,
	}))

	from := uint64(15)
	to := uint64(25)

	tests := []struct {
		name     string
		filter   EventQueryFilter
		expected []string
	}{
		{"all ordered by block", EventQueryFilter{}, []string{"e10", "o", "e20", "e30"}},
		{"block range", EventQueryFilter{FromBlock: &from, ToBlock: &to}, []string{"o", "e20"}},
		{"by address", EventQueryFilter{NFTAddress: testOtherAddress}, []string{"o"}},
		{"limit", EventQueryFilter{Limit: 2}, []string{"e10", "o"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := s.GetEvents(ctx, domain.EventTypeTransfer, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, eventIDs(events))
		})
	}

	_, err := s.GetEvents(ctx, domain.EventType("approval"), EventQueryFilter{})
	assert.ErrorIs(t, err, domain.ErrUnknownEventType)

	count, err := s.CountEvents(ctx, domain.EventTypeTransfer)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
}

// =============================================================================
// Entities
// =============================================================================

func testInsertEntities(t *testing.T, db *gorm.DB) {
	s := NewSQLStore(db)
	ctx := context.Background()

	require.NoError(t, s.InsertEntities(ctx, []domain.NFTMetadata{
		buildTestMetadata(testNFTAddress, "Punks", "PNK"),
		{Address: testOtherAddress},
	}))

	nft, err := s.GetNFT(ctx, testNFTAddress)
	require.NoError(t, err)
	require.NotNil(t, nft)
	assert.Equal(t, "Punks", *nft.Name)
	assert.Equal(t, "PNK", *nft.Symbol)

	bare, err := s.GetNFT(ctx, testOtherAddress)
	require.NoError(t, err)
	require.NotNil(t, bare)
	assert.Nil(t, bare.Name)
	assert.Nil(t, bare.Symbol)

	known, err := s.GetKnownNFTAddresses(ctx, []string{testNFTAddress, testFromAddress})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{testNFTAddress: true}, known)

	known, err = s.GetKnownNFTAddresses(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, known)
}

func testInsertEntitiesDuplicateInBatch(t *testing.T, db *gorm.DB) {
	s := NewSQLStore(db)
	ctx := context.Background()

	err := s.InsertEntities(ctx, []domain.NFTMetadata{
		buildTestMetadata(testNFTAddress, "Punks", "PNK"),
		buildTestMetadata(testOtherAddress, "Other", "OTH"),
		buildTestMetadata(testNFTAddress, "Punks v2", "PNK2"),
	})
	assert.ErrorIs(t, err, domain.ErrConstraintViolation)

	// Neither record is committed
	for _, address := range []string{testNFTAddress, testOtherAddress} {
		nft, err := s.GetNFT(ctx, address)
		require.NoError(t, err)
		assert.Nil(t, nft)
	}
}

func testInsertEntitiesExistingAddress(t *testing.T, db *gorm.DB) {
	s := NewSQLStore(db)
	ctx := context.Background()

	require.NoError(t, s.InsertEntities(ctx, []domain.NFTMetadata{buildTestMetadata(testNFTAddress, "Punks", "PNK")}))

	err := s.InsertEntities(ctx, []domain.NFTMetadata{
		buildTestMetadata(testOtherAddress, "Other", "OTH"),
		buildTestMetadata(testNFTAddress, "Punks", "PNK"),
	})
	assert.ErrorIs(t, err, domain.ErrConstraintViolation)

	nft, err := s.GetNFT(ctx, testOtherAddress)
	require.NoError(t, err)
	assert.Nil(t, nft)
}

// =============================================================================
// Checkpoints
// =============================================================================

func testCheckpointAbsent(t *testing.T, db *gorm.DB) {
	s := NewSQLStore(db)

	offset, found, err := s.GetOffset(context.Background(), domain.EventTypeTransfer)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, uint64(0), offset)
}

func testCheckpointLatestWins(t *testing.T, db *gorm.DB) {
	s := NewSQLStore(db)
	ctx := context.Background()

	require.NoError(t, s.RecordOffset(ctx, domain.EventTypeTransfer, 100))
	require.NoError(t, s.RecordOffset(ctx, domain.EventTypeTransfer, 150))

	offset, found, err := s.GetOffset(ctx, domain.EventTypeTransfer)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, uint64(150), offset)

	// Latest by insertion order, not by value
	require.NoError(t, s.RecordOffset(ctx, domain.EventTypeTransfer, 120))
	offset, _, err = s.GetOffset(ctx, domain.EventTypeTransfer)
	require.NoError(t, err)
	assert.Equal(t, uint64(120), offset)
}

func testCheckpointPerEventType(t *testing.T, db *gorm.DB) {
	s := NewSQLStore(db)
	ctx := context.Background()

	require.NoError(t, s.RecordOffset(ctx, domain.EventTypeTransfer, 100))
	require.NoError(t, s.RecordOffset(ctx, domain.EventTypeMint, 7))

	offset, found, err := s.GetOffset(ctx, domain.EventTypeTransfer)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, uint64(100), offset)

	offset, found, err = s.GetOffset(ctx, domain.EventTypeMint)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, uint64(7), offset)
}

func testCheckpointHistory(t *testing.T, db *gorm.DB) {
	s := NewSQLStore(db)
	ctx := context.Background()

	for _, offset := range []uint64{10, 20, 30} {
		require.NoError(t, s.RecordOffset(ctx, domain.EventTypeMint, offset))
	}

	history, err := s.GetCheckpointHistory(ctx, domain.EventTypeMint, 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, uint64(30), history[0].Offset)
	assert.Equal(t, uint64(10), history[2].Offset)
	assert.Greater(t, history[0].ID, history[1].ID)

	limited, err := s.GetCheckpointHistory(ctx, domain.EventTypeMint, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, uint64(30), limited[0].Offset)
}

func testCheckpointIndependentOfEventCommit(t *testing.T, db *gorm.DB) {
	s := NewSQLStore(db)
	ctx := context.Background()

	require.NoError(t, s.RecordOffset(ctx, domain.EventTypeTransfer, 500))

	// A failed event batch for the next range leaves the checkpoint untouched
	err := s.InsertEvents(ctx, []domain.NFTEvent{
		buildTestEvent("n", domain.EventTypeTransfer, 501),
		buildTestEvent("bad", domain.EventType("approval"), 502),
	})
	require.Error(t, err)

	offset, found, err := s.GetOffset(ctx, domain.EventTypeTransfer)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, uint64(500), offset)

	// A successful event batch does not advance it either
	require.NoError(t, s.InsertEvents(ctx, []domain.NFTEvent{buildTestEvent("n", domain.EventTypeTransfer, 501)}))
	offset, _, err = s.GetOffset(ctx, domain.EventTypeTransfer)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), offset)
}

// =============================================================================
// Address labels
// =============================================================================

func testAddressLabels(t *testing.T, db *gorm.DB) {
	s := NewSQLStore(db)
	ctx := context.Background()

	name := "Punks"
	labels := []domain.AddressLabel{
		{
			Address: testNFTAddress,
			Kind:    domain.LabelKindCoinMarketCapToken,
			Token:   &domain.TokenDetails{Name: "Punk Token", Symbol: "PT", CoinMarketCapURL: "https://coinmarketcap.com/currencies/pt"},
		},
		{
			Address: testNFTAddress,
			Kind:    domain.LabelKindERC721,
			NFT:     &domain.NFTDetails{Name: &name},
		},
	}
	require.NoError(t, s.InsertLabels(ctx, labels))

	// Same (address, label) pair is skipped
	changed := []domain.AddressLabel{{
		Address: testNFTAddress,
		Kind:    domain.LabelKindERC721,
		NFT:     &domain.NFTDetails{Name: &[]string{"Changed"}[0]},
	}}
	require.NoError(t, s.InsertLabels(ctx, changed))

	stored, err := s.GetLabels(ctx, testNFTAddress)
	require.NoError(t, err)
	assert.Equal(t, labels, stored)

	meta, ok := domain.MetadataFromLabels(testNFTAddress, stored)
	require.True(t, ok)
	assert.Equal(t, "Punks", *meta.Name)
	assert.Equal(t, "PT", *meta.Symbol)

	none, err := s.GetLabels(ctx, testOtherAddress)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testAddressLabelsInvalid(t *testing.T, db *gorm.DB) {
	s := NewSQLStore(db)
	ctx := context.Background()

	err := s.InsertLabels(ctx, []domain.AddressLabel{{
		Address: testNFTAddress,
		Kind:    domain.LabelKindERC721,
		Token:   &domain.TokenDetails{Name: "wrong payload"},
	}})
	assert.ErrorIs(t, err, domain.ErrInvalidMetadata)

	stored, err := s.GetLabels(ctx, testNFTAddress)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

// RunStoreTests runs every store test against a database.
// initDB must return a connection with an initialized, empty schema.
func RunStoreTests(t *testing.T, initDB func(t *testing.T) *gorm.DB, cleanupDB func(t *testing.T)) {
	tests := []struct {
		name string
		fn   func(*testing.T, *gorm.DB)
	}{
		{"InitializeIdempotent", testInitializeIdempotent},
		{"InsertEventsIdempotent", testInsertEventsIdempotent},
		{"InsertEventsPartition", testInsertEventsPartition},
		{"InsertEventsRedeliveryScenario", testInsertEventsRedeliveryScenario},
		{"InsertEventsDuplicateWithinBatch", testInsertEventsDuplicateWithinBatch},
		{"InsertEventsRoundTrip", testInsertEventsRoundTrip},
		{"InsertEventsUnknownType", testInsertEventsUnknownType},
		{"InsertEventsRollbackOnStorageError", testInsertEventsRollbackOnStorageError},
		{"InsertEventsEmpty", testInsertEventsEmpty},
		{"EventsWithoutEntity", testEventsWithoutEntity},
		{"GetEventsFilter", testGetEventsFilter},
		{"InsertEntities", testInsertEntities},
		{"InsertEntitiesDuplicateInBatch", testInsertEntitiesDuplicateInBatch},
		{"InsertEntitiesExistingAddress", testInsertEntitiesExistingAddress},
		{"CheckpointAbsent", testCheckpointAbsent},
		{"CheckpointLatestWins", testCheckpointLatestWins},
		{"CheckpointPerEventType", testCheckpointPerEventType},
		{"CheckpointHistory", testCheckpointHistory},
		{"CheckpointIndependentOfEventCommit", testCheckpointIndependentOfEventCommit},
		{"AddressLabels", testAddressLabels},
		{"AddressLabelsInvalid", testAddressLabelsInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := initDB(t)
			defer cleanupDB(t)
			tt.fn(t, db)
		})
	}
}
