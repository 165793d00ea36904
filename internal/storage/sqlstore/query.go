package sqlstore

import (
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/UkralStul/posts-service/internal/domain"
	"github.com/UkralStul/posts-service/internal/postfilter"
)

func (s *Store) selectQuery(filter domain.PostFilter) (string, []any, error) {
	where, err := s.whereClause(postfilter.Compile(filter))
	if err != nil {
		return "", nil, err
	}

	query, args, err := s.builder.From(tablePosts).
		Prepared(true).
		Select(colID, colCreatedAt, colDeletedAt, colOwnerID, colText, colContent).
		Where(where...).
		Order(goqu.C(colCreatedAt).Asc(), goqu.C(colID).Asc()).
		Limit(uint(filter.EffectiveLimit())).
		ToSQL()
	if err != nil {
		return "", nil, fmt.Errorf("failed to build select query: %w", err)
	}
	return query, args, nil
}

func (s *Store) whereClause(terms []postfilter.Term) ([]exp.Expression, error) {
	where := make([]exp.Expression, 0, len(terms))
	for _, term := range terms {
		e, err := s.expression(term)
		if err != nil {
			return nil, err
		}
		where = append(where, e)
	}
	return where, nil
}

// expression переводит одно условие в выражение goqu.
func (s *Store) expression(term postfilter.Term) (exp.Expression, error) {
	switch t := term.(type) {
	case postfilter.OwnerIs:
		return goqu.C(colOwnerID).Eq(t.OwnerID), nil
	case postfilter.IDIs:
		return goqu.C(colID).Eq(t.ID), nil
	case postfilter.DeletedIs:
		if t.Deleted {
			return goqu.C(colDeletedAt).IsNotNull(), nil
		}
		return goqu.C(colDeletedAt).IsNull(), nil
	case postfilter.TextContains:
		// LIKE трактует % и _ как шаблоны, а в SQLite ещё и игнорирует регистр
		return goqu.L(s.containsFunc()+"(?, ?) > 0", goqu.C(colText), t.Substring), nil
	case postfilter.CreatedBefore:
		return goqu.C(colCreatedAt).Lt(t.At.UTC()), nil
	case postfilter.NotDeletedBy:
		return goqu.Or(
			goqu.C(colDeletedAt).IsNull(),
			goqu.C(colDeletedAt).Gt(t.At.UTC()),
		), nil
	}
	return nil, fmt.Errorf("sqlstore: unsupported filter term %T", term)
}

func (s *Store) containsFunc() string {
	if s.dialect == DialectSQLite {
		return "instr"
	}
	return "strpos"
}
