package ingest

import "testing"

func TestMatchHeader_CanonicalPortuguese(t *testing.T) {
	roles, detected := MatchHeader([]string{"Nome", "Telefone", "Email", "Pontos"})

	if !detected {
		t.Fatal("expected header to be detected")
	}
	want := RoleMap{Name: 0, Phone: 1, Email: 2, Points: 3}
	if roles != want {
		t.Errorf("expected %+v, got %+v", want, roles)
	}
}

func TestMatchHeader_DiacriticsAndCase(t *testing.T) {
	roles, detected := MatchHeader([]string{"RAZÃO SOCIAL", "Celular", "E-MAIL", "Pontuação"})

	if !detected {
		t.Fatal("expected header to be detected")
	}
	want := RoleMap{Name: 0, Phone: 1, Email: 2, Points: 3}
	if roles != want {
		t.Errorf("expected %+v, got %+v", want, roles)
	}
}

func TestMatchHeader_ExactTokenOnly(t *testing.T) {
	// "nome do arquivo" is not an alias; substring matching would bind it.
	roles, detected := MatchHeader([]string{"nome do arquivo", "whatsapp"})

	if !detected {
		t.Fatal("expected header to be detected via whatsapp")
	}
	if roles.Name != Unmapped {
		t.Errorf("expected name unmapped, got %d", roles.Name)
	}
	if roles.Phone != 1 {
		t.Errorf("expected phone at 1, got %d", roles.Phone)
	}
}

func TestMatchHeader_NoAliases(t *testing.T) {
	roles, detected := MatchHeader([]string{"Maria Silva", "11987654321"})

	if detected {
		t.Error("expected data row not to be detected as header")
	}
	if !roles.Empty() {
		t.Errorf("expected empty role map, got %+v", roles)
	}
}

func TestMatchHeader_CollisionFirstComeFirstServed(t *testing.T) {
	// "fidelidade" and "pontos" both alias points; the first occurrence wins
	// and the duplicate stays unclaimed rather than rebinding.
	roles, detected := MatchHeader([]string{"nome", "telefone", "pontos", "fidelidade"})

	if !detected {
		t.Fatal("expected header to be detected")
	}
	if roles.Points != 2 {
		t.Errorf("expected points at 2, got %d", roles.Points)
	}
}

func TestMatchHeader_ExtraColumnsIgnored(t *testing.T) {
	roles, detected := MatchHeader([]string{"id", "nome", "cidade", "telefone", "observacao"})

	if !detected {
		t.Fatal("expected header to be detected")
	}
	if roles.Name != 1 || roles.Phone != 3 {
		t.Errorf("expected name=1 phone=3, got %+v", roles)
	}
	if roles.Email != Unmapped || roles.Points != Unmapped {
		t.Errorf("expected email/points unmapped, got %+v", roles)
	}
}

func TestFoldKey(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"  Telefone ", "telefone"},
		{"PONTUAÇÃO", "pontuacao"},
		{"\uFEFFnome", "nome"},
		{"e-mail", "e-mail"},
	}
	for _, tc := range cases {
		if got := foldKey(tc.in); got != tc.want {
			t.Errorf("foldKey(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}
