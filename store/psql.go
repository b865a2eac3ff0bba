package store

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type PsqlStore struct {
	pool *sqlx.DB
	log  *zap.Logger
}

const schemaDocuments = `
CREATE TABLE IF NOT EXISTS documents (
	name TEXT PRIMARY KEY,
	data JSONB NOT NULL
);
`

func NewPsqlStore(connStr string, log *zap.Logger) (*PsqlStore, error) {
	pool, err := sqlx.Connect("postgres", connStr)
	if err != nil {
		log.Error("unable to connect to db", zap.Error(err))
		return nil, err
	}

	if _, err := pool.Exec(schemaDocuments); err != nil {
		return nil, err
	}

	return &PsqlStore{
		pool: pool,
		log:  log,
	}, nil
}

func (s *PsqlStore) GetConn() *sqlx.DB {
	return s.pool
}

func (s *PsqlStore) Close() error {
	return s.pool.Close()
}

func (s *PsqlStore) Load(name string) ([]byte, error) {
	var data []byte
	err := s.pool.Get(&data, "SELECT data FROM documents WHERE name=$1;", name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		s.log.Error("failed to read document", zap.String("name", name), zap.Error(err))
		return nil, err
	}
	return data, nil
}

func (s *PsqlStore) Save(name string, data []byte) error {
	_, err := s.pool.Exec("INSERT INTO documents VALUES($1, $2) ON CONFLICT (name) DO UPDATE SET data = $2;", name, data)
	return err
}
