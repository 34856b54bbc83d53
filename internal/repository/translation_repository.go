package repository

import (
	"database/sql"
	"time"
)

// TranslationRepository caches translated content bodies. Implements
// resolve.TranslationStore.
type TranslationRepository struct {
	DB *sql.DB
}

func (r *TranslationRepository) Get(ownerType string, ownerID int, lang string) (string, error) {
	var body string
	err := r.DB.QueryRow(`
        SELECT body FROM translations
        WHERE owner_type = $1 AND owner_id = $2 AND lang = $3
    `, ownerType, ownerID, lang).Scan(&body)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return body, err
}

// Put upserts last-write-wins; concurrent identical writes are fine.
func (r *TranslationRepository) Put(ownerType string, ownerID int, lang, body string) error {
	_, err := r.DB.Exec(`
        INSERT INTO translations (owner_type, owner_id, lang, body, created_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (owner_type, owner_id, lang) DO UPDATE SET body = $4
    `, ownerType, ownerID, lang, body, time.Now())
	return err
}
