package roundfile

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	apperrors "github.com/gazelab/bluffing.eyes/internal/platform/errors"
)

// Row is one decoded round-file record.
type Row struct {
	Seq        uint64
	EventID    string
	Kind       string
	Actor      string
	GamePlayer int
	PlayerRole string
	Phase      string
	RoundIdx   *int
	TLocalNS   int64
	TUTCISO    string
	Payload    string
}

// ListRounds finds the round files under dir, keyed by round index.
func ListRounds(dir string) (map[int]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "round_*.csv"))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageQueryFailed, "glob round files", err)
	}

	rounds := make(map[int]string, len(matches))
	for _, path := range matches {
		name := filepath.Base(path)
		digits := name[len("round_") : len(name)-len(".csv")]
		round, err := strconv.Atoi(digits)
		if err != nil {
			continue
		}
		rounds[round] = path
	}
	return rounds, nil
}

// ReadRows decodes every record of one round file, skipping the header.
func ReadRows(path string) ([]Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageQueryFailed, "open round file", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = len(header)

	var rows []Row
	first := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeStorageQueryFailed, "read round file", err)
		}
		if first {
			first = false
			if record[0] == header[0] {
				continue
			}
		}
		row, err := parseRow(record)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeStorageQueryFailed, fmt.Sprintf("parse %s", filepath.Base(path)), err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseRow(record []string) (Row, error) {
	seq, err := strconv.ParseUint(record[0], 10, 64)
	if err != nil {
		return Row{}, fmt.Errorf("seq %q: %w", record[0], err)
	}
	tLocal, err := strconv.ParseInt(record[8], 10, 64)
	if err != nil {
		return Row{}, fmt.Errorf("t_local_ns %q: %w", record[8], err)
	}

	row := Row{
		Seq:        seq,
		EventID:    record[1],
		Kind:       record[2],
		Actor:      record[3],
		PlayerRole: record[5],
		Phase:      record[6],
		TLocalNS:   tLocal,
		TUTCISO:    record[9],
		Payload:    record[10],
	}
	if record[4] != "" {
		player, err := strconv.Atoi(record[4])
		if err != nil {
			return Row{}, fmt.Errorf("game_player %q: %w", record[4], err)
		}
		row.GamePlayer = player
	}
	if record[7] != "" {
		round, err := strconv.Atoi(record[7])
		if err != nil {
			return Row{}, fmt.Errorf("round_idx %q: %w", record[7], err)
		}
		row.RoundIdx = &round
	}
	return row, nil
}
