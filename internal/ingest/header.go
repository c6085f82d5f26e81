package ingest

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// roleAliases maps each role to the header spellings seen across CRM
// exports. Matching is exact-token equality per cell after folding, never
// substring.
var roleAliases = map[Role][]string{
	RoleName: {
		"nome", "cliente", "nome completo", "nome do cliente", "razao social",
	},
	RolePhone: {
		"telefone", "celular", "whatsapp", "contato", "fone", "tel",
		"telefone celular", "numero", "telemovel",
	},
	RoleEmail: {
		"email", "e-mail", "mail", "correio eletronico",
	},
	RolePoints: {
		"pontos", "pontuacao", "fidelidade", "pontos do fidelidade",
		"pontos fidelidade", "saldo", "saldo de pontos",
	},
}

// diacriticFold strips combining marks so "Razão" and "razao" compare equal.
var diacriticFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldKey lowercases, trims and removes diacritics from a header token.
func foldKey(s string) string {
	s = strings.ToLower(CleanCell(s))
	folded, _, err := transform.String(diacriticFold, s)
	if err != nil {
		return s
	}
	return folded
}

// foldedAliases is roleAliases with every alias pre-folded.
var foldedAliases = func() map[Role]map[string]bool {
	out := make(map[Role]map[string]bool, len(roleAliases))
	for role, aliases := range roleAliases {
		set := make(map[string]bool, len(aliases))
		for _, a := range aliases {
			set[foldKey(a)] = true
		}
		out[role] = set
	}
	return out
}()

// MatchHeader maps the first row of the table to semantic roles via the
// alias tables. The row is treated as a header only when at least one cell
// equals an alias for any role; the boolean reports that decision.
//
// Roles claim columns first-come-first-served in fixed role order, so no
// two roles can bind the same index even when their alias sets overlap.
func MatchHeader(first []string) (RoleMap, bool) {
	m := NewRoleMap()
	detected := false

	for _, role := range allRoles {
		aliases := foldedAliases[role]
		for idx, cell := range first {
			if !aliases[foldKey(cell)] {
				continue
			}
			detected = true
			if m.claimed(idx) {
				continue
			}
			m.setIndex(role, idx)
			break
		}
	}

	return m, detected
}
