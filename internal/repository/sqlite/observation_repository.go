package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	"facecam/internal/model"
)

// ObservationRepository implements repository.ObservationRepository for SQLite.
type ObservationRepository struct {
	db *DB
}

// NewObservationRepository creates a new SQLite observation repository.
func NewObservationRepository(db *DB) *ObservationRepository {
	return &ObservationRepository{db: db}
}

func (r *ObservationRepository) Initialize() error {
	return r.db.Initialize()
}

func (r *ObservationRepository) Reset() error {
	return r.db.Reset()
}

// Clear removes every row. The table and its id sequence are kept.
func (r *ObservationRepository) Clear() error {
	return r.db.withConn(func(conn *sql.DB) error {
		if _, err := conn.Exec(`DELETE FROM face_data`); err != nil {
			return fmt.Errorf("failed to clear observations: %w", err)
		}
		return nil
	})
}

// Insert adds a new observation and stores the assigned id on obs.
func (r *ObservationRepository) Insert(obs *model.Observation) (int64, error) {
	var age sql.NullInt64
	if obs.Age.Known {
		age = sql.NullInt64{Int64: int64(obs.Age.Value), Valid: true}
	}
	var imagePath sql.NullString
	if obs.ImagePath != "" {
		imagePath = sql.NullString{String: obs.ImagePath, Valid: true}
	}

	var id int64
	err := r.db.withConn(func(conn *sql.DB) error {
		result, err := conn.Exec(`
			INSERT INTO face_data (timestamp, age, gender, race, image_path)
			VALUES (?, ?, ?, ?, ?)
		`, obs.FormattedTimestamp(), age, obs.Gender, obs.Race, imagePath)
		if err != nil {
			return fmt.Errorf("failed to insert observation: %w", err)
		}
		id, err = result.LastInsertId()
		return err
	})
	if err != nil {
		return 0, err
	}
	obs.ID = id
	return id, nil
}

// Query returns observations matching filter, newest first.
func (r *ObservationRepository) Query(filter model.ObservationFilter) ([]model.Observation, error) {
	where, args := buildWhere(filter)
	query := `
		SELECT id, timestamp, age, gender, race, image_path
		FROM face_data
	` + where + ` ORDER BY timestamp DESC, id DESC`

	var observations []model.Observation
	err := r.db.withConn(func(conn *sql.DB) error {
		rows, err := conn.Query(query, args...)
		if err != nil {
			return fmt.Errorf("failed to query observations: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			obs, err := scanObservation(rows)
			if err != nil {
				return err
			}
			observations = append(observations, obs)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return observations, nil
}

// Count returns the number of observations matching filter.
func (r *ObservationRepository) Count(filter model.ObservationFilter) (int, error) {
	where, args := buildWhere(filter)

	var count int
	err := r.db.withConn(func(conn *sql.DB) error {
		if err := conn.QueryRow(`SELECT COUNT(*) FROM face_data `+where, args...).Scan(&count); err != nil {
			return fmt.Errorf("failed to count observations: %w", err)
		}
		return nil
	})
	return count, err
}

func buildWhere(filter model.ObservationFilter) (string, []interface{}) {
	var clauses []string
	args := []interface{}{}

	if gender, ok := filter.GenderPredicate(); ok {
		clauses = append(clauses, "gender = ?")
		args = append(args, gender)
	}

	if race, ok := filter.RacePredicate(); ok {
		clauses = append(clauses, "race = ?")
		args = append(args, race)
	}

	if filter.MinAge != nil {
		clauses = append(clauses, "age >= ?")
		args = append(args, *filter.MinAge)
	}

	if filter.MaxAge != nil {
		clauses = append(clauses, "age <= ?")
		args = append(args, *filter.MaxAge)
	}

	if len(clauses) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

func scanObservation(rows *sql.Rows) (model.Observation, error) {
	var (
		obs       model.Observation
		ts        string
		age       sql.NullInt64
		gender    sql.NullString
		race      sql.NullString
		imagePath sql.NullString
	)
	if err := rows.Scan(&obs.ID, &ts, &age, &gender, &race, &imagePath); err != nil {
		return obs, fmt.Errorf("failed to scan observation: %w", err)
	}

	parsed, err := model.ParseTimestamp(ts)
	if err != nil {
		return obs, fmt.Errorf("observation %d has invalid timestamp %q: %w", obs.ID, ts, err)
	}
	obs.Timestamp = parsed
	if age.Valid {
		obs.Age = model.KnownAge(int(age.Int64))
	}
	obs.Gender = gender.String
	obs.Race = race.String
	obs.ImagePath = imagePath.String
	if !gender.Valid {
		obs.Gender = model.Unknown
	}
	if !race.Valid {
		obs.Race = model.Unknown
	}
	return obs, nil
}
