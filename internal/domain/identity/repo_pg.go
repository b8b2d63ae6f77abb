package identity

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lunysse/lunysse/internal/platform/db"
)

type userRepoPG struct{ pool *pgxpool.Pool }

func NewUserRepoPG(pool *pgxpool.Pool) UserRepository { return &userRepoPG{pool: pool} }

const userCols = `id, name, email, phone, role, password_hash, created_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Role, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepoPG) Create(ctx context.Context, u *User) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO users (name, email, phone, role, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		u.Name, u.Email, u.Phone, u.Role, u.PasswordHash,
	).Scan(&u.ID, &u.CreatedAt)
	return db.Classify(err, "user", u.Email)
}

func (r *userRepoPG) GetByID(ctx context.Context, id int64) (*User, error) {
	u, err := scanUser(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, db.Classify(err, "user", id)
	}
	return u, nil
}

func (r *userRepoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	u, err := scanUser(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE lower(email) = lower($1)`, email))
	if err != nil {
		return nil, db.Classify(err, "user", email)
	}
	return u, nil
}

type psychologistRepoPG struct{ pool *pgxpool.Pool }

func NewPsychologistRepoPG(pool *pgxpool.Pool) PsychologistRepository {
	return &psychologistRepoPG{pool: pool}
}

const psychologistSelect = `
	SELECT u.id, u.name, u.email, u.phone, p.specialty, p.crp, p.bio, p.photo_ref
	FROM psychologists p JOIN users u ON u.id = p.user_id`

func scanPsychologist(row pgx.Row) (*Psychologist, error) {
	var p Psychologist
	if err := row.Scan(&p.ID, &p.Name, &p.Email, &p.Phone, &p.Specialty, &p.CRP, &p.Bio, &p.PhotoRef); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *psychologistRepoPG) Create(ctx context.Context, p *Psychologist) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO psychologists (user_id, specialty, crp, bio, photo_ref)
		VALUES ($1, $2, $3, $4, $5)`,
		p.ID, p.Specialty, p.CRP, p.Bio, p.PhotoRef)
	return db.Classify(err, "psychologist", p.ID)
}

func (r *psychologistRepoPG) GetByID(ctx context.Context, id int64) (*Psychologist, error) {
	p, err := scanPsychologist(db.Conn(ctx, r.pool).QueryRow(ctx, psychologistSelect+` WHERE u.id = $1`, id))
	if err != nil {
		return nil, db.Classify(err, "psychologist", id)
	}
	return p, nil
}

func (r *psychologistRepoPG) List(ctx context.Context) ([]Psychologist, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, psychologistSelect+` ORDER BY lower(u.name), u.id`)
	if err != nil {
		return nil, db.Classify(err, "psychologists", "all")
	}
	defer rows.Close()

	items := make([]Psychologist, 0)
	for rows.Next() {
		p, err := scanPsychologist(rows)
		if err != nil {
			return nil, db.Classify(err, "psychologists", "all")
		}
		items = append(items, *p)
	}
	return items, db.Classify(rows.Err(), "psychologists", "all")
}
