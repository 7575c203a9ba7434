package hashes

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StinkyLord/sbom-enricher/internal/ecosystem"
	"github.com/StinkyLord/sbom-enricher/internal/model"
)

const helloSHA256 = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"

func TestDecodePrefixed(t *testing.T) {
	alg, value, err := DecodePrefixed("sha256:" + "2CF24DBA5FB0A30E26E83B2AC5B9E29E1B161E5C1FA7425E73043362938B9824")
	require.NoError(t, err)
	assert.Equal(t, model.SHA256, alg)
	assert.Equal(t, helloSHA256, value)

	_, _, err = DecodePrefixed("crc32:abcd")
	assert.True(t, errors.Is(err, ErrUnknownAlgorithm))

	_, _, err = DecodePrefixed("sha256:not-hex")
	assert.True(t, errors.Is(err, ErrMalformedValue))

	_, _, err = DecodePrefixed("abcdef")
	assert.True(t, errors.Is(err, ErrMalformedValue))
}

func TestDecodeSRI(t *testing.T) {
	alg, value, err := DecodeSRI("sha512-Dh4h7PEF7IU9JNcohnrXBhPCFmOkaTB0sqNhnBvTnWa1iMM3I7tGbHJCToDjymPCSQeKs0e6uUKFAOfuQwWdDQ==")
	require.NoError(t, err)
	assert.Equal(t, model.SHA512, alg)
	assert.Len(t, value, 128)
	assert.Equal(t, "0e1e21ecf105ec853d24d728867ad70613c21663a4693074b2a3619c1bd39d66b588c33723bb466c72424e80e3ca63c249078ab347bab9428500e7ee43059d0d", value)

	alg, value, err = DecodeSRI("sha256-LPJNul+wow4m6DsqxbninhsWHlwfp0JecwQzYpOLmCQ=")
	require.NoError(t, err)
	assert.Equal(t, model.SHA256, alg)
	assert.Equal(t, helloSHA256, value)

	_, _, err = DecodeSRI("sha512-!!!notbase64")
	assert.True(t, errors.Is(err, ErrMalformedValue))

	_, _, err = DecodeSRI("whirlpool-LPJNul+wow4m6DsqxbninhsWHlwfp0JecwQzYpOLmCQ=")
	assert.True(t, errors.Is(err, ErrUnknownAlgorithm))

	_, _, err = DecodeSRI("nodash")
	assert.True(t, errors.Is(err, ErrMalformedValue))
}

func TestDecodeAutoDetect(t *testing.T) {
	alg, value, err := Decode("sha256:" + helloSHA256)
	require.NoError(t, err)
	assert.Equal(t, model.SHA256, alg)
	assert.Equal(t, helloSHA256, value)

	alg, value, err = Decode("sha256-LPJNul+wow4m6DsqxbninhsWHlwfp0JecwQzYpOLmCQ=")
	require.NoError(t, err)
	assert.Equal(t, model.SHA256, alg)
	assert.Equal(t, helloSHA256, value)
}

func TestDecodeSRIListDropsBadEntries(t *testing.T) {
	got := DecodeSRIList("sha1-??? sha256-LPJNul+wow4m6DsqxbninhsWHlwfp0JecwQzYpOLmCQ=  md4-abc=")
	require.Len(t, got, 1)
	assert.Equal(t, model.Hash{Algorithm: model.SHA256, Value: helloSHA256}, got[0])
}

func wheel(name string, universal bool) Candidate {
	return Candidate{
		Hash:      model.PackageHash{Name: "pkg", Version: "1.0", Algorithm: model.SHA256, Value: name, ArtifactType: "wheel", Filename: name},
		Universal: universal,
	}
}

func sdist(name string) Candidate {
	return Candidate{Hash: model.PackageHash{Name: "pkg", Version: "1.0", Algorithm: model.SHA256, Value: name, ArtifactType: "sdist", Filename: name}}
}

func TestNormalizeDigest(t *testing.T) {
	got, err := NormalizeDigest(model.SHA256, "  "+strings.ToUpper(helloSHA256))
	require.NoError(t, err)
	assert.Equal(t, helloSHA256, got)

	_, err = NormalizeDigest(model.SHA256, helloSHA256[:40])
	assert.True(t, errors.Is(err, ErrMalformedValue))

	_, err = NormalizeDigest(model.SHA512, helloSHA256)
	assert.True(t, errors.Is(err, ErrMalformedValue))

	_, err = NormalizeDigest(model.SHA256, "zz")
	assert.True(t, errors.Is(err, ErrMalformedValue))
}

func TestSelectBest(t *testing.T) {
	tests := []struct {
		name  string
		cands []Candidate
		want  string
	}{
		{"universal wins over everything", []Candidate{sdist("s"), wheel("plat", false), wheel("any", true)}, "any"},
		{"first universal wins", []Candidate{wheel("any1", true), wheel("any2", true)}, "any1"},
		{"preferred kind over sdist", []Candidate{sdist("s"), wheel("plat1", false), wheel("plat2", false)}, "plat1"},
		{"first remaining otherwise", []Candidate{sdist("s1"), sdist("s2")}, "s1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SelectBest(tt.cands, ecosystem.PyPI)
			require.True(t, ok)
			assert.Equal(t, tt.want, got.Hash.Value)
		})
	}

	_, ok := SelectBest(nil, ecosystem.PyPI)
	assert.False(t, ok)
}

func TestIsUniversalWheel(t *testing.T) {
	assert.True(t, IsUniversalWheel("requests-2.32.3-py3-none-any.whl"))
	assert.True(t, IsUniversalWheel("six-1.16.0-py2.py3-none-any.whl"))
	assert.False(t, IsUniversalWheel("numpy-2.1.0-cp312-cp312-manylinux_2_17_x86_64.whl"))
	assert.False(t, IsUniversalWheel("requests-2.32.3.tar.gz"))
	assert.Equal(t, "sdist", ArtifactTypeOf("requests-2.32.3.tar.gz"))
	assert.Equal(t, "wheel", ArtifactTypeOf("requests-2.32.3-py3-none-any.whl"))
}

func TestReconcileAttachesHash(t *testing.T) {
	target := &model.Component{Name: "django", Version: "5.1.1"}
	hashes := []model.PackageHash{{Name: "Django", Version: "5.1.1", Algorithm: model.SHA256, Value: "abc123"}}

	stats := Reconciler{Ecosystem: ecosystem.PyPI}.Reconcile(hashes, []*model.Component{target})
	require.Len(t, target.Hashes, 1)
	assert.Equal(t, model.Hash{Algorithm: model.SHA256, Value: "abc123"}, target.Hashes[0])
	assert.Equal(t, Stats{Candidates: 1, Matched: 1, Added: 1}, stats)
}

func TestReconcileIsIdempotent(t *testing.T) {
	target := &model.Component{Name: "zope.interface", Version: "7.0"}
	hashes := []model.PackageHash{{Name: "zope-interface", Version: "7.0", Algorithm: model.SHA256, Value: "ABC"}}
	r := Reconciler{Ecosystem: ecosystem.PyPI}

	r.Reconcile(hashes, []*model.Component{target})
	stats := r.Reconcile(hashes, []*model.Component{target})
	assert.Len(t, target.Hashes, 1)
	assert.Equal(t, "abc", target.Hashes[0].Value)
	assert.Equal(t, 0, stats.Added)
	assert.Equal(t, 1, stats.Skipped)
}

func TestReconcileVersionMustMatchExactly(t *testing.T) {
	target := &model.Component{Name: "requests", Version: "2.32"}
	hashes := []model.PackageHash{{Name: "requests", Version: "2.32.0", Algorithm: model.SHA256, Value: "aa"}}

	stats := Reconciler{Ecosystem: ecosystem.PyPI}.Reconcile(hashes, []*model.Component{target})
	assert.Empty(t, target.Hashes)
	assert.Equal(t, 1, stats.Unmatched)
	assert.Equal(t, 0, stats.Matched)
}

func TestReconcileOverwrite(t *testing.T) {
	newTarget := func() *model.Component {
		return &model.Component{Name: "serde", Version: "1.0.0", Hashes: []model.Hash{{Algorithm: model.SHA256, Value: "old"}}}
	}
	hashes := []model.PackageHash{
		{Name: "serde", Version: "1.0.0", Algorithm: model.SHA256, Value: "new"},
		{Name: "serde", Version: "1.0.0", Algorithm: model.SHA512, Value: "fresh"},
	}

	keep := newTarget()
	stats := Reconciler{Ecosystem: ecosystem.Cargo}.Reconcile(hashes, []*model.Component{keep})
	assert.Equal(t, "old", keep.Hashes[0].Value)
	assert.Len(t, keep.Hashes, 2)
	assert.Equal(t, Stats{Candidates: 2, Matched: 1, Added: 1, Skipped: 1}, stats)

	replace := newTarget()
	stats = Reconciler{Ecosystem: ecosystem.Cargo, Overwrite: true}.Reconcile(hashes, []*model.Component{replace})
	assert.Equal(t, "new", replace.Hashes[0].Value)
	assert.Equal(t, Stats{Candidates: 2, Matched: 1, Added: 2, Replaced: 1}, stats)
}

func TestTargetsForFiltersOtherEcosystems(t *testing.T) {
	py := &model.Component{Name: "django", Version: "5.1.1", PURL: "pkg:pypi/django@5.1.1"}
	crate := &model.Component{Name: "serde", Version: "1.0.210", PURL: "pkg:cargo/serde@1.0.210"}
	bare := &model.Component{Name: "vendored", Version: "1.0"}

	got := TargetsFor([]*model.Component{py, crate, bare}, ecosystem.PyPI)
	assert.Equal(t, []*model.Component{py, bare}, got)
}

func TestStatsAdd(t *testing.T) {
	s := Stats{Added: 1, Skipped: 2}
	s.Add(Stats{Added: 3, Unmatched: 1})
	assert.Equal(t, Stats{Added: 4, Skipped: 2, Unmatched: 1}, s)
}
