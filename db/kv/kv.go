// Package kv implements the pipeline's intermediate store on top of bbolt.
// Values are snappy-compressed JSON; a ristretto cache fronts hot record
// reads and prombbolt exports the bolt runtime metrics.
package kv

import (
	"os"
	"path/filepath"
	"time"

	"github.com/byzantron-research/aibyz-dataset/io/file"
	"github.com/dgraph-io/ristretto"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	prombbolt "github.com/prysmaticlabs/prombbolt"
	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

var log = logrus.WithField("prefix", "db")

// DatabaseFileName is the name of the dataset store datafile.
const DatabaseFileName = "aibyzdata.db"

const (
	boltAllocSize = 8 * 1024 * 1024
	// The size of each data entry in bytes for the bucket cache costs.
	recordCacheItems = 1 << 20
	recordCacheSize  = 1 << 28 // 256 MB
)

// Config for the bolt store.
type Config struct {
	InitialMMapSize int
}

// Store defines an implementation of the dataset Database interface using
// bbolt as the underlying persistent kv-store.
type Store struct {
	db           *bolt.DB
	databasePath string
	recordCache  *ristretto.Cache
}

// NewKVStore initializes a new bbolt key-value store at the directory path
// specified, creates the kv-buckets based on the schema, and stores an open
// connection db object as a property of the Store struct.
func NewKVStore(dirPath string, cfg *Config) (*Store, error) {
	if err := file.MkdirAll(dirPath); err != nil {
		return nil, err
	}
	datafile := filepath.Join(dirPath, DatabaseFileName)
	boltDB, err := bolt.Open(
		datafile,
		0600,
		&bolt.Options{
			Timeout:         1 * time.Second,
			InitialMmapSize: cfg.InitialMMapSize,
		},
	)
	if err != nil {
		if errors.Is(err, bolt.ErrTimeout) {
			return nil, errors.New("cannot obtain database lock, database may be in use by another process")
		}
		return nil, err
	}
	boltDB.AllocSize = boltAllocSize

	recordCache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: recordCacheItems, // number of keys to track frequency of.
		MaxCost:     recordCacheSize,  // maximum cost of cache.
		BufferItems: 64,               // number of keys per Get buffer.
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to start record cache")
	}

	kv := &Store{
		db:           boltDB,
		databasePath: datafile,
		recordCache:  recordCache,
	}
	if err := kv.db.Update(func(tx *bolt.Tx) error {
		return createBuckets(
			tx,
			rawBlocksBucket,
			rawValidatorsBucket,
			rawAttestationsBucket,
			rawPenaltiesBucket,
			rawPerformanceBucket,
			syntheticRowsBucket,
			enrichedRecordsBucket,
			progressBucket,
			manifestsBucket,
		)
	}); err != nil {
		return nil, err
	}
	err = prometheus.Register(createBoltCollector(kv.db))
	if err != nil {
		log.WithError(err).Debug("Skipping bolt metrics registration")
	}
	return kv, nil
}

// createBoltCollector returns a prometheus collector specifically configured for boltdb.
func createBoltCollector(db *bolt.DB) prometheus.Collector {
	return prombbolt.New("aibyz_db", db)
}

func createBuckets(tx *bolt.Tx, buckets ...[]byte) error {
	for _, bucket := range buckets {
		if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	s.recordCache.Clear()
	return s.db.Close()
}

// ClearDB removes the previously stored database in the data directory.
func (s *Store) ClearDB() error {
	if _, err := os.Stat(s.databasePath); os.IsNotExist(err) {
		return nil
	}
	prometheus.Unregister(createBoltCollector(s.db))
	if err := os.Remove(s.databasePath); err != nil {
		return errors.Wrap(err, "could not remove database file")
	}
	return nil
}

// DatabasePath at which this database writes files.
func (s *Store) DatabasePath() string {
	return s.databasePath
}

// Size returns the db size in bytes.
func (s *Store) Size() (int64, error) {
	var size int64
	err := s.db.View(func(tx *bolt.Tx) error {
		size = tx.Size()
		return nil
	})
	return size, err
}
