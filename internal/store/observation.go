package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ayusman/handpose/internal/handpose"
)

// Observation is the analysis result of one frame.
type Observation struct {
	ID         int64                `json:"id"`
	SessionID  string               `json:"session_id"`
	FrameIndex int                  `json:"frame_index"`
	CapturedAt time.Time            `json:"captured_at"`
	Hands      int                  `json:"hands"`
	Handedness string               `json:"handedness,omitempty"`
	Fingers    handpose.FingerState `json:"fingers"`
	Box        handpose.BoundingBox `json:"box"`
	Distance   *float64             `json:"distance,omitempty"`
	Landmarks  handpose.LandmarkSet `json:"landmarks,omitempty"`
}

// ObservationRepository provides access to observations.
type ObservationRepository struct {
	db *sql.DB
}

// Observations returns the observation repository for this store.
func (s *Store) Observations() *ObservationRepository {
	return &ObservationRepository{db: s.db}
}

const insertObservation = `INSERT INTO observations
	(session_id, frame_index, captured_at, hands, handedness, fingers, finger_count,
	 x_min, y_min, x_max, y_max, distance, landmarks)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// Add inserts a single observation and sets its ID.
func (r *ObservationRepository) Add(o *Observation) error {
	args, err := observationArgs(o)
	if err != nil {
		return err
	}
	res, err := r.db.Exec(insertObservation, args...)
	if err != nil {
		return err
	}
	o.ID, err = res.LastInsertId()
	return err
}

// AddBatch inserts observations in a single transaction.
func (r *ObservationRepository) AddBatch(obs []Observation) error {
	if len(obs) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(insertObservation)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range obs {
		args, err := observationArgs(&obs[i])
		if err != nil {
			return err
		}
		res, err := stmt.Exec(args...)
		if err != nil {
			return fmt.Errorf("insert frame %d: %w", obs[i].FrameIndex, err)
		}
		if obs[i].ID, err = res.LastInsertId(); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListBySession returns observations of a session ordered by frame.
func (r *ObservationRepository) ListBySession(sessionID string, limit, offset int) ([]Observation, error) {
	if limit <= 0 {
		limit = 500
	}

	rows, err := r.db.Query(
		`SELECT id, session_id, frame_index, captured_at, hands, handedness, fingers,
		        x_min, y_min, x_max, y_max, distance, landmarks
		 FROM observations
		 WHERE session_id = ?
		 ORDER BY frame_index
		 LIMIT ? OFFSET ?`,
		sessionID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var obs []Observation
	for rows.Next() {
		var o Observation
		var fingers int
		var distance sql.NullFloat64
		var landmarks string
		if err := rows.Scan(&o.ID, &o.SessionID, &o.FrameIndex, &o.CapturedAt, &o.Hands, &o.Handedness, &fingers,
			&o.Box.XMin, &o.Box.YMin, &o.Box.XMax, &o.Box.YMax, &distance, &landmarks); err != nil {
			return nil, err
		}
		o.Fingers = handpose.FingerStateFromMask(uint8(fingers))
		if distance.Valid {
			d := distance.Float64
			o.Distance = &d
		}
		if err := json.Unmarshal([]byte(landmarks), &o.Landmarks); err != nil {
			return nil, fmt.Errorf("decode landmarks of observation %d: %w", o.ID, err)
		}
		obs = append(obs, o)
	}
	return obs, rows.Err()
}

// FingerHistogram counts the frames of a session with a hand by number of
// raised fingers.
func (r *ObservationRepository) FingerHistogram(sessionID string) (map[int]int, error) {
	rows, err := r.db.Query(
		`SELECT finger_count, COUNT(*) FROM observations
		 WHERE session_id = ? AND hands > 0
		 GROUP BY finger_count`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hist := make(map[int]int)
	for rows.Next() {
		var fingers, n int
		if err := rows.Scan(&fingers, &n); err != nil {
			return nil, err
		}
		hist[fingers] = n
	}
	return hist, rows.Err()
}

func observationArgs(o *Observation) ([]any, error) {
	if o.CapturedAt.IsZero() {
		o.CapturedAt = time.Now().UTC()
	}
	landmarks := o.Landmarks
	if landmarks == nil {
		landmarks = handpose.LandmarkSet{}
	}
	data, err := json.Marshal(landmarks)
	if err != nil {
		return nil, fmt.Errorf("encode landmarks: %w", err)
	}

	var distance any
	if o.Distance != nil {
		distance = *o.Distance
	}

	return []any{
		o.SessionID, o.FrameIndex, o.CapturedAt, o.Hands, o.Handedness,
		int(o.Fingers.Mask()), o.Fingers.Count(),
		o.Box.XMin, o.Box.YMin, o.Box.XMax, o.Box.YMax,
		distance, string(data),
	}, nil
}
