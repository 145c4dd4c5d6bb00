package db

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/babylonlabs-io/staking-ledger/internal/config"
	"github.com/babylonlabs-io/staking-ledger/internal/db/model"
	"github.com/rs/zerolog/log"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
	"go.mongodb.org/mongo-driver/bson"
)

const stakeEntryByPoolIndex = "stake_entries_by_pool"

// LevelDB is the embedded record store. Records are bson encoded under
// "<collection>/<address>" keys. Transactions are optimistic: they read from
// a snapshot and their reads are validated against the committed state when
// the transaction commits.
type LevelDB struct {
	db         *leveldb.DB
	commitMu   sync.Mutex
	txAttempts uint
	writeOpts  *opt.WriteOptions
}

// NewLevelDB opens the store at cfg.LevelDBPath, or in memory when the path is empty.
func NewLevelDB(cfg config.DbConfig) (*LevelDB, error) {
	var (
		ldb *leveldb.DB
		err error
	)
	if cfg.LevelDBPath == "" {
		ldb, err = leveldb.Open(storage.NewMemStorage(), nil)
	} else {
		ldb, err = leveldb.OpenFile(cfg.LevelDBPath, nil)
	}
	if err != nil {
		return nil, err
	}

	txAttempts := cfg.TxRetryAttempts
	if txAttempts == 0 {
		txAttempts = defaultTxAttempts
	}

	return &LevelDB{
		db:         ldb,
		txAttempts: txAttempts,
		writeOpts:  &opt.WriteOptions{Sync: cfg.LevelDBPath != ""},
	}, nil
}

func (l *LevelDB) Ping(_ context.Context) error {
	_, err := l.db.GetProperty("leveldb.stats")
	return err
}

func (l *LevelDB) Close(_ context.Context) error {
	return l.db.Close()
}

func (l *LevelDB) RunInTransaction(ctx context.Context, fn TxFunc) error {
	return retryOnConflict(ctx, l.txAttempts, func() error {
		tx, err := newLevelTx(l)
		if err != nil {
			return err
		}
		defer tx.release()

		if err := fn(ctx, tx); err != nil {
			return err
		}
		return tx.commit(ctx)
	})
}

func (l *LevelDB) GetPool(_ context.Context, address string) (*model.PoolDocument, error) {
	return getDoc[model.PoolDocument](l.get, model.PoolCollection, address, "pool")
}

func (l *LevelDB) GetStakeEntry(_ context.Context, address string) (*model.StakeEntryDocument, error) {
	return getDoc[model.StakeEntryDocument](l.get, model.StakeEntryCollection, address, "stake entry")
}

func (l *LevelDB) GetMint(_ context.Context, address string) (*model.MintDocument, error) {
	return getDoc[model.MintDocument](l.get, model.MintCollection, address, "mint")
}

func (l *LevelDB) GetTokenAccount(_ context.Context, address string) (*model.TokenAccountDocument, error) {
	return getDoc[model.TokenAccountDocument](l.get, model.TokenAccountCollection, address, "token account")
}

func (l *LevelDB) SumStakeEntryBalances(ctx context.Context, pool string) (sdkmath.Uint, uint64, error) {
	entries, err := l.GetStakeEntriesByPool(ctx, pool)
	if err != nil {
		return sdkmath.ZeroUint(), 0, err
	}
	return sumBalances(entries), uint64(len(entries)), nil
}

func (l *LevelDB) ListPools(_ context.Context) ([]*model.PoolDocument, error) {
	var pools []*model.PoolDocument
	iter := l.db.NewIterator(util.BytesPrefix(collectionPrefix(model.PoolCollection)), nil)
	defer iter.Release()

	for iter.Next() {
		var pool model.PoolDocument
		if err := bson.Unmarshal(iter.Value(), &pool); err != nil {
			return nil, err
		}
		pools = append(pools, &pool)
	}

	return pools, iter.Error()
}

func (l *LevelDB) GetStakeEntriesByPool(ctx context.Context, pool string) ([]*model.StakeEntryDocument, error) {
	addresses, err := l.scan(entryIndexPrefix(pool))
	if err != nil {
		return nil, err
	}

	entries := make([]*model.StakeEntryDocument, 0, len(addresses))
	for _, address := range addresses {
		entry, err := l.GetStakeEntry(ctx, address)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (l *LevelDB) UpsertPoolStats(_ context.Context, doc *model.PoolStatsDocument) error {
	return l.putDoc(model.PoolStatsCollection, doc.Pool, doc)
}

func (l *LevelDB) GetPoolStats(_ context.Context, pool string) (*model.PoolStatsDocument, error) {
	return getDoc[model.PoolStatsDocument](l.get, model.PoolStatsCollection, pool, "pool stats")
}

func (l *LevelDB) UpsertOverallStats(_ context.Context, doc *model.OverallStatsDocument) error {
	doc.ID = model.OverallStatsID
	return l.putDoc(model.OverallStatsCollection, doc.ID, doc)
}

func (l *LevelDB) GetOverallStats(_ context.Context) (*model.OverallStatsDocument, error) {
	return getDoc[model.OverallStatsDocument](l.get, model.OverallStatsCollection, model.OverallStatsID, "overall stats")
}

func (l *LevelDB) InsertRequestReceipt(_ context.Context, doc *model.RequestReceiptDocument) error {
	l.commitMu.Lock()
	defer l.commitMu.Unlock()

	existing, err := l.get(recordKey(model.RequestReceiptCollection, doc.Digest))
	if err != nil {
		return err
	}
	if existing != nil {
		return &DuplicateKeyError{
			Key:     doc.Digest,
			Message: "request receipt already exists",
		}
	}
	return l.putDoc(model.RequestReceiptCollection, doc.Digest, doc)
}

func (l *LevelDB) DeleteExpiredRequestReceipts(_ context.Context, now time.Time) (int64, error) {
	l.commitMu.Lock()
	defer l.commitMu.Unlock()

	iter := l.db.NewIterator(util.BytesPrefix(collectionPrefix(model.RequestReceiptCollection)), nil)
	defer iter.Release()

	batch := new(leveldb.Batch)
	for iter.Next() {
		var receipt model.RequestReceiptDocument
		if err := bson.Unmarshal(iter.Value(), &receipt); err != nil {
			return 0, err
		}
		if !receipt.ExpiresAt.After(now) {
			batch.Delete(iter.Key())
		}
	}
	if err := iter.Error(); err != nil {
		return 0, err
	}

	if batch.Len() == 0 {
		return 0, nil
	}
	if err := l.db.Write(batch, l.writeOpts); err != nil {
		return 0, err
	}
	return int64(batch.Len()), nil
}

// levelReader is implemented by both the database and its snapshots.
type levelReader interface {
	Get(key []byte, ro *opt.ReadOptions) ([]byte, error)
	NewIterator(slice *util.Range, ro *opt.ReadOptions) iterator.Iterator
}

func (l *LevelDB) get(key []byte) ([]byte, error) {
	return getValue(l.db, key)
}

func (l *LevelDB) scan(prefix []byte) ([]string, error) {
	return scanSuffixes(l.db, prefix)
}

// getValue returns nil without error for absent keys.
func getValue(r levelReader, key []byte) ([]byte, error) {
	value, err := r.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil
	}
	return value, err
}

// scanSuffixes returns the address suffixes of all keys under prefix, in key order.
func scanSuffixes(r levelReader, prefix []byte) ([]string, error) {
	var suffixes []string
	iter := r.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()

	for iter.Next() {
		suffixes = append(suffixes, string(iter.Key()[len(prefix):]))
	}
	return suffixes, iter.Error()
}

func (l *LevelDB) putDoc(collection, id string, doc any) error {
	value, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	return l.db.Put(recordKey(collection, id), value, l.writeOpts)
}

// levelTx reads from one snapshot, buffers writes and remembers every value
// and range it read.
type levelTx struct {
	store  *LevelDB
	snap   *leveldb.Snapshot
	reads  map[string][]byte
	scans  map[string][]string
	writes map[string][]byte
}

func newLevelTx(store *LevelDB) (*levelTx, error) {
	snap, err := store.db.GetSnapshot()
	if err != nil {
		return nil, err
	}

	return &levelTx{
		store:  store,
		snap:   snap,
		reads:  make(map[string][]byte),
		scans:  make(map[string][]string),
		writes: make(map[string][]byte),
	}, nil
}

func (t *levelTx) release() {
	t.snap.Release()
}

func (t *levelTx) get(key []byte) ([]byte, error) {
	k := string(key)
	if value, ok := t.writes[k]; ok {
		return value, nil
	}
	if value, ok := t.reads[k]; ok {
		return value, nil
	}

	value, err := getValue(t.snap, key)
	if err != nil {
		return nil, err
	}
	t.reads[k] = value
	return value, nil
}

func (t *levelTx) scan(prefix []byte) ([]string, error) {
	p := string(prefix)
	committed, ok := t.scans[p]
	if !ok {
		var err error
		committed, err = scanSuffixes(t.snap, prefix)
		if err != nil {
			return nil, err
		}
		t.scans[p] = committed
	}

	suffixes := append([]string(nil), committed...)
	for k := range t.writes {
		if strings.HasPrefix(k, p) {
			suffixes = append(suffixes, k[len(p):])
		}
	}
	return suffixes, nil
}

func (t *levelTx) putDoc(collection, id string, doc any) error {
	value, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	t.writes[string(recordKey(collection, id))] = value
	return nil
}

func (t *levelTx) insertDoc(collection, id, kind string, doc any) error {
	existing, err := t.get(recordKey(collection, id))
	if err != nil {
		return err
	}
	if existing != nil {
		return &DuplicateKeyError{
			Key:     id,
			Message: kind + " already exists",
		}
	}
	return t.putDoc(collection, id, doc)
}

func (t *levelTx) replaceDoc(collection, id, kind string, doc any) error {
	existing, err := t.get(recordKey(collection, id))
	if err != nil {
		return err
	}
	if existing == nil {
		return &NotFoundError{
			Key:     id,
			Message: kind + " not found",
		}
	}
	return t.putDoc(collection, id, doc)
}

// commit fails with WriteConflictError if anything the transaction read
// changed since its snapshot was taken.
func (t *levelTx) commit(ctx context.Context) error {
	t.store.commitMu.Lock()
	defer t.store.commitMu.Unlock()

	for k, value := range t.reads {
		current, err := t.store.get([]byte(k))
		if err != nil {
			return err
		}
		if !bytes.Equal(current, value) {
			return &WriteConflictError{
				Key:     k,
				Message: "record " + k + " changed during transaction",
			}
		}
	}

	for prefix, keys := range t.scans {
		current, err := t.store.scan([]byte(prefix))
		if err != nil {
			return err
		}
		if !slices.Equal(current, keys) {
			return &WriteConflictError{
				Key:     prefix,
				Message: "range " + prefix + " changed during transaction",
			}
		}
	}

	if len(t.writes) == 0 {
		return nil
	}

	batch := new(leveldb.Batch)
	for k, value := range t.writes {
		batch.Put([]byte(k), value)
	}
	if err := t.store.db.Write(batch, t.store.writeOpts); err != nil {
		return err
	}

	log.Ctx(ctx).Trace().Int("writes", len(t.writes)).Int("reads", len(t.reads)).Msg("leveldb transaction committed")
	return nil
}

func (t *levelTx) GetPool(_ context.Context, address string) (*model.PoolDocument, error) {
	return getDoc[model.PoolDocument](t.get, model.PoolCollection, address, "pool")
}

func (t *levelTx) GetStakeEntry(_ context.Context, address string) (*model.StakeEntryDocument, error) {
	return getDoc[model.StakeEntryDocument](t.get, model.StakeEntryCollection, address, "stake entry")
}

func (t *levelTx) GetMint(_ context.Context, address string) (*model.MintDocument, error) {
	return getDoc[model.MintDocument](t.get, model.MintCollection, address, "mint")
}

func (t *levelTx) GetTokenAccount(_ context.Context, address string) (*model.TokenAccountDocument, error) {
	return getDoc[model.TokenAccountDocument](t.get, model.TokenAccountCollection, address, "token account")
}

func (t *levelTx) SumStakeEntryBalances(ctx context.Context, pool string) (sdkmath.Uint, uint64, error) {
	addresses, err := t.scan(entryIndexPrefix(pool))
	if err != nil {
		return sdkmath.ZeroUint(), 0, err
	}

	entries := make([]*model.StakeEntryDocument, 0, len(addresses))
	for _, address := range addresses {
		entry, err := t.GetStakeEntry(ctx, address)
		if err != nil {
			return sdkmath.ZeroUint(), 0, err
		}
		entries = append(entries, entry)
	}
	return sumBalances(entries), uint64(len(entries)), nil
}

func (t *levelTx) InsertPool(_ context.Context, doc *model.PoolDocument) error {
	return t.insertDoc(model.PoolCollection, doc.Address, "pool", doc)
}

func (t *levelTx) UpdatePool(_ context.Context, doc *model.PoolDocument) error {
	return t.replaceDoc(model.PoolCollection, doc.Address, "pool", doc)
}

func (t *levelTx) InsertStakeEntry(_ context.Context, doc *model.StakeEntryDocument) error {
	if err := t.insertDoc(model.StakeEntryCollection, doc.Address, "stake entry", doc); err != nil {
		return err
	}
	t.writes[string(entryIndexKey(doc.Pool, doc.Address))] = []byte{}
	return nil
}

func (t *levelTx) UpdateStakeEntry(_ context.Context, doc *model.StakeEntryDocument) error {
	return t.replaceDoc(model.StakeEntryCollection, doc.Address, "stake entry", doc)
}

func (t *levelTx) InsertMint(_ context.Context, doc *model.MintDocument) error {
	return t.insertDoc(model.MintCollection, doc.Address, "mint", doc)
}

func (t *levelTx) UpdateMint(_ context.Context, doc *model.MintDocument) error {
	return t.replaceDoc(model.MintCollection, doc.Address, "mint", doc)
}

func (t *levelTx) InsertTokenAccount(_ context.Context, doc *model.TokenAccountDocument) error {
	return t.insertDoc(model.TokenAccountCollection, doc.Address, "token account", doc)
}

func (t *levelTx) UpdateTokenAccount(_ context.Context, doc *model.TokenAccountDocument) error {
	return t.replaceDoc(model.TokenAccountCollection, doc.Address, "token account", doc)
}

func getDoc[T any](get func(key []byte) ([]byte, error), collection, id, kind string) (*T, error) {
	value, err := get(recordKey(collection, id))
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, &NotFoundError{
			Key:     id,
			Message: kind + " not found",
		}
	}

	var doc T
	if err := bson.Unmarshal(value, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func sumBalances(entries []*model.StakeEntryDocument) sdkmath.Uint {
	total := sdkmath.ZeroUint()
	for _, entry := range entries {
		total = total.Add(sdkmath.NewUint(entry.Balance.Uint64()))
	}
	return total
}

func collectionPrefix(collection string) []byte {
	return []byte(collection + "/")
}

func recordKey(collection, id string) []byte {
	return []byte(collection + "/" + id)
}

func entryIndexPrefix(pool string) []byte {
	return []byte(stakeEntryByPoolIndex + "/" + pool + "/")
}

func entryIndexKey(pool, entry string) []byte {
	return []byte(stakeEntryByPoolIndex + "/" + pool + "/" + entry)
}
