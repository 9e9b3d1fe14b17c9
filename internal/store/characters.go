package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const characterColumns = "id, name, image_url, image_version, canonical_state, first_appearance_scene, last_appearance_scene, created_at, updated_at"

// NextCharacterIDTx issues the next sequential character identifier in the
// form char_001, char_002, and so on. Runs inside the caller's transaction
// so concurrent introductions cannot collide.
func (s *Store) NextCharacterIDTx(ctx context.Context, tx *sql.Tx) (string, error) {
	var last sql.NullString
	row := tx.QueryRowContext(ctx, `SELECT id FROM characters ORDER BY id DESC LIMIT 1`)
	if err := row.Scan(&last); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("query last character id: %w", err)
	}
	next := 1
	if last.Valid {
		suffix := strings.TrimPrefix(last.String, "char_")
		parsed, err := strconv.Atoi(suffix)
		if err != nil {
			return "", fmt.Errorf("malformed character id %q: %w", last.String, err)
		}
		next = parsed + 1
	}
	return fmt.Sprintf("char_%03d", next), nil
}

// CharacterByID fetches one character, or nil when absent.
func (s *Store) CharacterByID(ctx context.Context, id string) (*Character, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+characterColumns+` FROM characters WHERE id = ?`, id)
	character, err := scanCharacter(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get character: %w", err)
	}
	return character, nil
}

// CharacterByName fetches one character by exact name match.
func (s *Store) CharacterByName(ctx context.Context, name string) (*Character, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+characterColumns+` FROM characters WHERE name = ?`, name)
	character, err := scanCharacter(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get character by name: %w", err)
	}
	return character, nil
}

// CharacterByNameTx is the transactional variant of CharacterByName.
func (s *Store) CharacterByNameTx(ctx context.Context, tx *sql.Tx, name string) (*Character, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+characterColumns+` FROM characters WHERE name = ?`, name)
	character, err := scanCharacter(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get character by name: %w", err)
	}
	return character, nil
}

// Characters returns the full registry ordered by identifier.
func (s *Store) Characters(ctx context.Context) ([]*Character, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+characterColumns+` FROM characters ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query characters: %w", err)
	}
	defer rows.Close()

	var characters []*Character
	for rows.Next() {
		character, err := scanCharacter(rows)
		if err != nil {
			return nil, err
		}
		characters = append(characters, character)
	}
	return characters, rows.Err()
}

// InsertCharacterTx registers a new character inside the caller's transaction.
func (s *Store) InsertCharacterTx(ctx context.Context, tx *sql.Tx, character *Character) error {
	if character == nil {
		return errors.New("character is nil")
	}
	now := timestamp(time.Now())
	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO characters (id, name, image_url, image_version, canonical_state, first_appearance_scene, last_appearance_scene, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		character.ID,
		character.Name,
		character.ImageURL,
		character.ImageVersion,
		nullableString(character.CanonicalState),
		character.FirstAppearanceScene,
		character.LastAppearanceScene,
		now,
		now,
	); err != nil {
		return fmt.Errorf("insert character: %w", err)
	}
	return nil
}

// TouchCharacterTx updates an existing character's canonical state and
// last appearance after a scene it took part in completes.
func (s *Store) TouchCharacterTx(ctx context.Context, tx *sql.Tx, id string, canonicalState string, sceneNumber int64) error {
	res, err := tx.ExecContext(
		ctx,
		`UPDATE characters
         SET canonical_state = COALESCE(NULLIF(?, ''), canonical_state),
             last_appearance_scene = ?,
             updated_at = ?
         WHERE id = ?`,
		canonicalState,
		sceneNumber,
		timestamp(time.Now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("update character: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("character %s not found", id)
	}
	return nil
}

// UpdateCharacterImage records a regenerated reference image.
func (s *Store) UpdateCharacterImage(ctx context.Context, id, imageURL string) error {
	if _, err := s.db.ExecContext(
		ctx,
		`UPDATE characters SET image_url = ?, image_version = image_version + 1, updated_at = ? WHERE id = ?`,
		imageURL,
		timestamp(time.Now()),
		id,
	); err != nil {
		return fmt.Errorf("update character image: %w", err)
	}
	return nil
}

func scanCharacter(sc scanner) (*Character, error) {
	var (
		id         string
		name       string
		imageURL   string
		imageVer   int
		state      sql.NullString
		firstScene sql.NullInt64
		lastScene  sql.NullInt64
		createdRaw sql.NullString
		updatedRaw sql.NullString
	)
	if err := sc.Scan(&id, &name, &imageURL, &imageVer, &state, &firstScene, &lastScene, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	character := &Character{
		ID:                   id,
		Name:                 name,
		ImageURL:             imageURL,
		ImageVersion:         imageVer,
		CanonicalState:       state.String,
		FirstAppearanceScene: firstScene.Int64,
		LastAppearanceScene:  lastScene.Int64,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		character.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		character.UpdatedAt = updated
	}
	return character, nil
}
