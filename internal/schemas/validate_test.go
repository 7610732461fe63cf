package schemas

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storeschemas "github.com/Atypics3/About-My-Professor/schemas"
)

func TestValidateDocument_ResolutionStore(t *testing.T) {
	doc := []byte(`{"Lee, K.": "https://campusdirectory.ucsc.edu/cd_detail?uid=kl7", "Doe, A.": null}`)
	assert.NoError(t, ValidateDocument(storeschemas.ResolutionStore, doc))
}

func TestValidateDocument_ResolutionStoreRejectsNumbers(t *testing.T) {
	err := ValidateDocument(storeschemas.ResolutionStore, []byte(`{"Lee, K.": 7}`))
	require.Error(t, err)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	require.Len(t, ve.Errors, 1)
	assert.Contains(t, ve.Errors[0].Field, "Lee, K.")
}

func TestValidateDocument_IdentifierStore(t *testing.T) {
	assert.NoError(t, ValidateDocument(storeschemas.IdentifierStore, []byte(`{"Lee, K.": "kl7"}`)))

	err := ValidateDocument(storeschemas.IdentifierStore, []byte(`{"Lee, K.": "kl 7"}`))
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
}

func TestValidateDocument_RejectsEmptyName(t *testing.T) {
	err := ValidateDocument(storeschemas.SnapshotStore, []byte(`{"": "topic"}`))
	assert.Error(t, err)
}

func TestValidateDocument_RootMustBeObject(t *testing.T) {
	err := ValidateDocument(storeschemas.SnapshotStore, []byte(`["a"]`))
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "(root)", ve.Errors[0].Field)
	assert.Contains(t, ve.Error(), "validation failed")
}

func TestValidateDocument_UnknownSchema(t *testing.T) {
	err := ValidateDocument("nope.schema.json", []byte(`{}`))
	var le *SchemaLoadError
	require.True(t, errors.As(err, &le))
	assert.Contains(t, le.Error(), "nope.schema.json")
}

func TestValidateDocument_MalformedJSON(t *testing.T) {
	err := ValidateDocument(storeschemas.SnapshotStore, []byte(`{"a": `))
	var le *SchemaLoadError
	assert.True(t, errors.As(err, &le))
}

func TestValidateFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prof_uid.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"Smith, J": "jsmith1"}`), 0o644))

	assert.NoError(t, ValidateFile(storeschemas.IdentifierStore, path))

	err := ValidateFile(storeschemas.IdentifierStore, filepath.Join(dir, "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
