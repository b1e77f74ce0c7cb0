package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"authgate/internal/domain/user"
	"authgate/internal/infrastructure/crypto"
)

const userColumns = `id, email, name, profile_picture, password_hash,
	google_id, google_access_token, google_refresh_token, google_token_expiry,
	facebook_id, facebook_access_token, facebook_refresh_token,
	twitter_id, twitter_access_token, twitter_token_secret,
	linkedin_id, linkedin_access_token, linkedin_refresh_token,
	reset_token, reset_expires, created_at, updated_at`

// providerCols maps a provider name to its column set. Secret doubles as
// the refresh column for OAuth 2.0 providers and the token secret column
// for Twitter.
type providerCols struct {
	id     string
	access string
	secret string
	expiry string
}

var providerColumns = map[string]providerCols{
	"google":   {id: "google_id", access: "google_access_token", secret: "google_refresh_token", expiry: "google_token_expiry"},
	"facebook": {id: "facebook_id", access: "facebook_access_token", secret: "facebook_refresh_token"},
	"twitter":  {id: "twitter_id", access: "twitter_access_token", secret: "twitter_token_secret"},
	"linkedin": {id: "linkedin_id", access: "linkedin_access_token", secret: "linkedin_refresh_token"},
}

// UserRepository implements the user.Repository interface for PostgreSQL.
// Provider tokens are encrypted at rest.
type UserRepository struct {
	db        *DB
	encryptor *crypto.Encryptor
}

func NewUserRepository(db *DB, encryptor *crypto.Encryptor) *UserRepository {
	return &UserRepository{
		db:        db,
		encryptor: encryptor,
	}
}

func (r *UserRepository) Create(ctx context.Context, params user.CreateUserParams) (*user.User, error) {
	cols := []string{"email", "name", "profile_picture", "password_hash"}
	vals := []any{params.Email, params.Name, params.ProfilePicture, params.PasswordHash}

	if params.Provider != "" {
		pc, ok := providerColumns[params.Provider]
		if !ok {
			return nil, fmt.Errorf("unknown provider %q", params.Provider)
		}

		access, err := r.encryptPtr(params.AccessToken)
		if err != nil {
			return nil, err
		}
		cols = append(cols, pc.id, pc.access)
		vals = append(vals, params.ProviderID, access)

		secret := params.RefreshToken
		if params.Provider == "twitter" {
			secret = params.TokenSecret
		}
		if secret != nil {
			enc, err := r.encryptPtr(secret)
			if err != nil {
				return nil, err
			}
			cols = append(cols, pc.secret)
			vals = append(vals, enc)
		}
		if params.TokenExpiry != nil {
			cols = append(cols, pc.expiry)
			vals = append(vals, params.TokenExpiry)
		}
	}

	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf(`
		INSERT INTO users (%s)
		VALUES (%s)
		RETURNING %s
	`, strings.Join(cols, ", "), strings.Join(placeholders, ", "), userColumns)

	u, err := r.scanUser(r.db.QueryRowContext(ctx, query, vals...))
	if isDuplicateKey(err) {
		return nil, user.ErrDuplicateKey
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)

	u, err := r.scanUser(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, user.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE LOWER(email) = LOWER($1)`, userColumns)

	u, err := r.scanUser(r.db.QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, user.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return u, nil
}

func (r *UserRepository) GetByProviderID(ctx context.Context, provider, providerID string) (*user.User, error) {
	pc, ok := providerColumns[provider]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
	query := fmt.Sprintf(`SELECT %s FROM users WHERE %s = $1`, userColumns, pc.id)

	u, err := r.scanUser(r.db.QueryRowContext(ctx, query, providerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, user.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by provider id: %w", err)
	}
	return u, nil
}

func (r *UserRepository) GetByProviderIDOrEmail(ctx context.Context, provider, providerID, email string) (*user.User, error) {
	pc, ok := providerColumns[provider]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", provider)
	}

	// An id match outranks an email match when both exist.
	query := fmt.Sprintf(`
		SELECT %s FROM users
		WHERE %s = $1 OR (email IS NOT NULL AND LOWER(email) = LOWER($2))
		ORDER BY (%s = $1) DESC
		LIMIT 1
	`, userColumns, pc.id, pc.id)

	u, err := r.scanUser(r.db.QueryRowContext(ctx, query, providerID, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, user.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by provider id or email: %w", err)
	}
	return u, nil
}

func (r *UserRepository) UpdateProviderTokens(ctx context.Context, userID int64, params user.ProviderTokenParams) (*user.User, error) {
	pc, ok := providerColumns[params.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", params.Provider)
	}

	access, err := r.encryptor.Encrypt(params.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt access token: %w", err)
	}

	args := []any{userID, access}
	sets := []string{
		fmt.Sprintf("%s = $2", pc.access),
		"updated_at = CURRENT_TIMESTAMP",
	}
	if params.ProviderID != "" {
		// Attach the provider id only if the record has none yet.
		args = append(args, params.ProviderID)
		sets = append(sets, fmt.Sprintf("%s = COALESCE(%s, $%d)", pc.id, pc.id, len(args)))
	}

	secret := params.RefreshToken
	if params.Provider == "twitter" {
		secret = params.TokenSecret
	}
	if secret != nil {
		enc, err := r.encryptor.Encrypt(*secret)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt token secret: %w", err)
		}
		args = append(args, enc)
		sets = append(sets, fmt.Sprintf("%s = $%d", pc.secret, len(args)))
	}
	if params.TokenExpiry != nil {
		args = append(args, params.TokenExpiry)
		sets = append(sets, fmt.Sprintf("%s = $%d", pc.expiry, len(args)))
	}

	query := fmt.Sprintf(`
		UPDATE users
		SET %s
		WHERE id = $1
		RETURNING %s
	`, strings.Join(sets, ", "), userColumns)

	u, err := r.scanUser(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, user.ErrNotFound
	}
	if isDuplicateKey(err) {
		return nil, user.ErrDuplicateKey
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update provider tokens: %w", err)
	}
	return u, nil
}

func (r *UserRepository) GetByResetToken(ctx context.Context, token string) (*user.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE reset_token = $1`, userColumns)

	u, err := r.scanUser(r.db.QueryRowContext(ctx, query, token))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, user.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by reset token: %w", err)
	}
	return u, nil
}

func (r *UserRepository) SetResetToken(ctx context.Context, userID int64, token string, expires time.Time) error {
	query := `
		UPDATE users
		SET reset_token = $2, reset_expires = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, userID, token, expires)
	if err != nil {
		return fmt.Errorf("failed to set reset token: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UserRepository) ResetPassword(ctx context.Context, userID int64, passwordHash string) error {
	query := `
		UPDATE users
		SET password_hash = $2, reset_token = NULL, reset_expires = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UserRepository) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE users
		SET reset_token = NULL, reset_expires = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE reset_expires IS NOT NULL AND reset_expires < $1
	`

	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to clear expired reset tokens: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *UserRepository) scanUser(row scanner) (*user.User, error) {
	var u user.User
	var email, picture, passwordHash sql.NullString
	var googleID, googleAccess, googleRefresh sql.NullString
	var googleExpiry sql.NullTime
	var facebookID, facebookAccess, facebookRefresh sql.NullString
	var twitterID, twitterAccess, twitterSecret sql.NullString
	var linkedinID, linkedinAccess, linkedinRefresh sql.NullString
	var resetToken sql.NullString
	var resetExpires sql.NullTime

	err := row.Scan(
		&u.ID, &email, &u.Name, &picture, &passwordHash,
		&googleID, &googleAccess, &googleRefresh, &googleExpiry,
		&facebookID, &facebookAccess, &facebookRefresh,
		&twitterID, &twitterAccess, &twitterSecret,
		&linkedinID, &linkedinAccess, &linkedinRefresh,
		&resetToken, &resetExpires,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	u.Email = nsPtr(email)
	u.ProfilePicture = nsPtr(picture)
	u.PasswordHash = nsPtr(passwordHash)
	u.GoogleID = nsPtr(googleID)
	u.GoogleTokenExpiry = ntPtr(googleExpiry)
	u.FacebookID = nsPtr(facebookID)
	u.TwitterID = nsPtr(twitterID)
	u.LinkedInID = nsPtr(linkedinID)
	u.ResetToken = nsPtr(resetToken)
	u.ResetExpires = ntPtr(resetExpires)

	for _, tok := range []struct {
		src sql.NullString
		dst **string
	}{
		{googleAccess, &u.GoogleAccessToken},
		{googleRefresh, &u.GoogleRefreshToken},
		{facebookAccess, &u.FacebookAccessToken},
		{facebookRefresh, &u.FacebookRefreshToken},
		{twitterAccess, &u.TwitterAccessToken},
		{twitterSecret, &u.TwitterTokenSecret},
		{linkedinAccess, &u.LinkedInAccessToken},
		{linkedinRefresh, &u.LinkedInRefreshToken},
	} {
		if !tok.src.Valid {
			continue
		}
		plain, err := r.encryptor.Decrypt(tok.src.String)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt provider token: %w", err)
		}
		*tok.dst = &plain
	}

	return &u, nil
}

func (r *UserRepository) encryptPtr(value *string) (*string, error) {
	if value == nil || *value == "" {
		return value, nil
	}
	encrypted, err := r.encryptor.Encrypt(*value)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt provider token: %w", err)
	}
	return &encrypted, nil
}

func isDuplicateKey(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func nsPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func ntPtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	return &v.Time
}
