package main

import (
	"database/sql"

	"github.com/sparsetex/ttm"
)

// statsStore persists per-frame Statistics snapshots to a SQLite file.
// This is telemetry about a replay run, not Manager state — the engine
// itself keeps no persisted state.
type statsStore struct {
	db   *sql.DB
	stmt *sql.Stmt
}

func openStatsStore(path string) (*statsStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS frame_stats (
		frame_index        INTEGER PRIMARY KEY,
		total_tiles_num     INTEGER,
		allocated_tiles_num INTEGER,
		standby_tiles_num   INTEGER,
		heap_free_tiles_num INTEGER
	)`); err != nil {
		db.Close()
		return nil, err
	}

	stmt, err := db.Prepare(`INSERT INTO frame_stats
		(frame_index, total_tiles_num, allocated_tiles_num, standby_tiles_num, heap_free_tiles_num)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &statsStore{db: db, stmt: stmt}, nil
}

func (s *statsStore) record(frameIndex int, stats ttm.Statistics) error {
	_, err := s.stmt.Exec(frameIndex, stats.TotalTilesNum, stats.AllocatedTilesNum, stats.StandbyTilesNum, stats.HeapFreeTilesNum)
	return err
}

func (s *statsStore) Close() error {
	if err := s.stmt.Close(); err != nil {
		s.db.Close()
		return err
	}
	return s.db.Close()
}

type frameStatsRow struct {
	frameIndex int
	stats      ttm.Statistics
}

func readFrameStats(db *sql.DB) ([]frameStatsRow, error) {
	rows, err := db.Query(`SELECT frame_index, total_tiles_num, allocated_tiles_num, standby_tiles_num, heap_free_tiles_num
		FROM frame_stats ORDER BY frame_index`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []frameStatsRow
	for rows.Next() {
		var r frameStatsRow
		if err := rows.Scan(&r.frameIndex, &r.stats.TotalTilesNum, &r.stats.AllocatedTilesNum, &r.stats.StandbyTilesNum, &r.stats.HeapFreeTilesNum); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
