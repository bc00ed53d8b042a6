package menu

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_Lookup(t *testing.T) {
	c := Default()

	tests := []struct {
		name     string
		input    string
		wantName string
		wantErr  error
		wantAmb  []string
	}{
		{name: "exact name", input: "Latte", wantName: "Latte"},
		{name: "case insensitive", input: "COLD BREW", wantName: "Cold Brew"},
		{name: "article and punctuation", input: "a latte?", wantName: "Latte"},
		{name: "plural", input: "lattes", wantName: "Latte"},
		{name: "plural ies", input: "cookies", wantName: "Chocolate Chip Cookie"},
		{name: "synonym frappe", input: "frappe", wantName: "Coffee Frappuccino"},
		{name: "synonym matcha", input: "matcha", wantName: "Matcha Latte"},
		{name: "by id", input: "banana-bread", wantName: "Banana Bread"},
		{name: "coffee is ambiguous", input: "coffee", wantAmb: []string{"Americano", "Latte", "Cold Brew", "Mocha", "Coffee Frappuccino"}},
		{name: "croissant is ambiguous", input: "croissants", wantAmb: []string{"Plain Croissant", "Chocolate Croissant"}},
		{name: "tea is ambiguous", input: "Tea", wantAmb: []string{"Black Tea", "Jasmine Tea", "Lemon Green Tea", "Matcha Latte"}},
		{name: "not on menu", input: "smoothie", wantErr: ErrNotFound},
		{name: "empty", input: "  ", wantErr: ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it, err := c.Lookup(tt.input)
			if tt.wantAmb != nil {
				var amb *AmbiguousError
				require.True(t, errors.As(err, &amb), "expected AmbiguousError, got %v", err)
				assert.Equal(t, tt.wantAmb, amb.Options)
				return
			}
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, it.Name)
		})
	}
}

func TestCatalog_ItemRules(t *testing.T) {
	c := Default()

	latte, err := c.Lookup("latte")
	require.NoError(t, err)
	frap, err := c.Lookup("coffee frappuccino")
	require.NoError(t, err)
	americano, err := c.Lookup("americano")
	require.NoError(t, err)
	jasmine, err := c.Lookup("jasmine tea")
	require.NoError(t, err)
	cookie, err := c.Lookup("cookie")
	require.NoError(t, err)

	t.Run("temperatures", func(t *testing.T) {
		assert.Equal(t, []Temperature{TempHot, TempIced}, c.LegalTemperatures(latte))
		assert.Equal(t, []Temperature{TempIced}, c.LegalTemperatures(frap))
		assert.True(t, latte.NeedsTemperature())
		assert.False(t, frap.NeedsTemperature())
		assert.Empty(t, c.LegalTemperatures(cookie))
	})

	t.Run("milk", func(t *testing.T) {
		assert.True(t, c.RequiresMilk(latte))
		assert.False(t, c.RequiresMilk(americano))
		assert.True(t, c.AllowsMilk(americano))
		assert.False(t, c.AllowsMilk(jasmine))
		assert.False(t, c.AllowsMilk(cookie))
	})

	t.Run("modifiers", func(t *testing.T) {
		assert.True(t, c.AllowsModifier(latte, "extra shot"))
		assert.True(t, c.AllowsModifier(latte, "Extra Espresso"))
		assert.False(t, c.AllowsModifier(latte, "extra matcha shot"))
		assert.False(t, c.AllowsModifier(jasmine, "extra shot"))
		assert.False(t, c.AllowsModifier(americano, "chocolate syrup"))
		assert.False(t, c.AllowsModifier(cookie, "caramel syrup"))
		assert.False(t, c.AllowsModifier(latte, "extra hot"))
	})

	t.Run("sizes", func(t *testing.T) {
		assert.True(t, latte.HasSizes())
		assert.False(t, cookie.HasSizes())
	})
}

func TestCatalog_PriceOf(t *testing.T) {
	c := Default()
	latte, _ := c.Lookup("latte")
	americano, _ := c.Lookup("americano")
	cookie, _ := c.Lookup("cookie")

	tests := []struct {
		name string
		item Item
		size Size
		milk Milk
		mods []Modifier
		want Money
	}{
		{name: "small latte whole milk", item: latte, size: SizeSmall, milk: MilkWhole, want: 450},
		{name: "large latte oat milk", item: latte, size: SizeLarge, milk: MilkOat, want: 600},
		{name: "almond milk surcharge", item: latte, size: SizeSmall, milk: MilkAlmond, want: 525},
		{name: "two extra shots", item: americano, size: SizeLarge, mods: []Modifier{{Name: "extra shot", Count: 2}}, want: 700},
		{name: "syrup pumps", item: americano, size: SizeSmall, mods: []Modifier{{Name: "caramel", Count: 3}}, want: 450},
		{name: "free modifiers", item: americano, size: SizeSmall, mods: []Modifier{{Name: "less ice", Count: 1}}, want: 300},
		{name: "unsized drink priced small", item: americano, want: 300},
		{name: "pastry single price", item: cookie, want: 250},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.PriceOf(tt.item, tt.size, tt.milk, tt.mods))
		})
	}
}

func TestMoney_String(t *testing.T) {
	assert.Equal(t, "$4.50", Money(450).String())
	assert.Equal(t, "$0.05", Money(5).String())
	assert.Equal(t, "$12.00", Money(1200).String())
	assert.Equal(t, "-$1.25", Money(-125).String())
	assert.Equal(t, Money(375), FromFloat(3.75))
	assert.Equal(t, Money(55), FromFloat(0.545+0.005))
}

func TestParseAttributes(t *testing.T) {
	s, ok := ParseSize("Large.")
	assert.True(t, ok)
	assert.Equal(t, SizeLarge, s)
	_, ok = ParseSize("medium")
	assert.False(t, ok)

	temp, ok := ParseTemperature("Iced")
	assert.True(t, ok)
	assert.Equal(t, TempIced, temp)
	_, ok = ParseTemperature("lukewarm")
	assert.False(t, ok)

	m, ok := ParseMilk("Oat Milk")
	assert.True(t, ok)
	assert.Equal(t, MilkOat, m)
	_, ok = ParseMilk("soy milk")
	assert.False(t, ok)

	assert.Equal(t, "Oat milk", MilkLabel(MilkOat))
	assert.Equal(t, "a, b, or c", JoinSpoken([]string{"a", "b", "c"}, "or"))
}

func TestCatalog_Summary(t *testing.T) {
	s := Default().Summary()
	assert.Contains(t, s, "COFFEE: Americano ($3.00/$4.00)")
	assert.Contains(t, s, "Cold Brew ($4.00/$5.00, iced only)")
	assert.Contains(t, s, "PASTRY: Plain Croissant ($3.50)")
}

func TestCatalog_WithLimits(t *testing.T) {
	base := Default()
	c := base.WithLimits(Limits{MaxSyrupPumps: 6})
	assert.Equal(t, Limits{MaxExtraShots: 2, MaxSyrupPumps: 6}, c.Limits())
	assert.Equal(t, DefaultLimits, base.Limits(), "original is untouched")
}

func TestCatalog_FamiliesAndAddons(t *testing.T) {
	c := Default()
	families := c.Families()
	assert.ElementsMatch(t, []string{"Plain Croissant", "Chocolate Croissant"}, families["croissant"])

	families["croissant"][0] = "Bagel"
	_, err := c.Lookup("croissant")
	var amb *AmbiguousError
	require.True(t, errors.As(err, &amb))
	assert.NotContains(t, amb.Options, "Bagel")

	addons := c.Addons()
	require.NotEmpty(t, addons)
	assert.Equal(t, "caramel syrup", addons[0].Name)
}
