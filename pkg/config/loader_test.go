package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalMainYAML = `
server:
  port: "9090"
database:
  host: localhost
  port: 5432
  user: tb
  password: secret
  database: taskbridge
clickup:
  token: pk_test
  team_id: "9013"
chatguru:
  token: cg_test
  endpoint: https://chat.example.com/api/v1
ai:
  openai_api_key: sk-test
`

const minimalPromptYAML = `
system_role: Assistente de classificação.
task_description: Classifique a solicitação.
categories: [Logistica, Outros]
activity_types:
  - {name: Rotineira, description: recorrente, id: type-1}
status_options:
  - {name: Executar, id: status-1}
category_mappings:
  Logistica: cat-1
subcategory_mappings:
  Logistica:
    Corrida de motoboy: {id: sub-1, stars: 1}
field_ids:
  category_field_id: f-cat
response_format: Responda APENAS com JSON válido
`

func writeConfigDir(t *testing.T, mainYAML, promptYAML string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "taskbridge.yaml"), []byte(mainYAML), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prompt.yaml"), []byte(promptYAML), 0o600))
	return dir
}

func TestInitialize_LoadsAndDefaults(t *testing.T) {
	dir := writeConfigDir(t, minimalMainYAML, minimalPromptYAML)

	cfg, err := Initialize(dir)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "https://api.clickup.com/api/v2", cfg.ClickUp.BaseURL)
	assert.Equal(t, "gpt-4o-mini", cfg.AI.OpenAIModel)
	assert.Equal(t, 10, cfg.Database.MaxOpenConns)
	require.NotNil(t, cfg.Prompt)
	assert.True(t, cfg.Prompt.HasCategory("Logistica"))
	assert.True(t, cfg.Prompt.HasSubcategory("Logistica", "Corrida de motoboy"))
	assert.False(t, cfg.Prompt.HasSubcategory("Outros", "Corrida de motoboy"))
}

func TestInitialize_ExpandsEnvVars(t *testing.T) {
	t.Setenv("TB_TEST_TOKEN", "pk_from_env")
	mainYAML := `
database: {host: localhost, port: 5432, user: u, password: p, database: d}
clickup: {token: "${TB_TEST_TOKEN}", team_id: "9013"}
chatguru: {token: t, endpoint: https://chat.example.com}
ai: {openai_api_key: sk-test}
`
	dir := writeConfigDir(t, mainYAML, minimalPromptYAML)

	cfg, err := Initialize(dir)
	require.NoError(t, err)
	assert.Equal(t, "pk_from_env", cfg.ClickUp.Token)
}

func TestInitialize_MissingRequiredField(t *testing.T) {
	mainYAML := `
database: {host: localhost}
clickup: {team_id: "9013"}
chatguru: {endpoint: https://chat.example.com}
ai: {openai_api_key: sk-test}
`
	dir := writeConfigDir(t, mainYAML, minimalPromptYAML)

	_, err := Initialize(dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestInitialize_MissingFiles(t *testing.T) {
	_, err := Initialize(t.TempDir())
	require.Error(t, err)

	var loadErr *LoadError
	assert.ErrorAs(t, err, &loadErr)
}

func TestInitialize_UnknownSubcategoryCategory(t *testing.T) {
	badPrompt := `
system_role: r
task_description: d
categories: [Logistica]
activity_types: [{name: Rotineira, description: x, id: t1}]
status_options: [{name: Executar, id: s1}]
subcategory_mappings:
  Inexistente:
    Algo: {id: x, stars: 1}
response_format: JSON
`
	dir := writeConfigDir(t, minimalMainYAML, badPrompt)

	_, err := Initialize(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Inexistente")
}

func TestPromptConfig_GeneratePrompt(t *testing.T) {
	dir := writeConfigDir(t, minimalMainYAML, minimalPromptYAML)
	cfg, err := Initialize(dir)
	require.NoError(t, err)

	prompt := cfg.Prompt.GeneratePrompt("Preciso de um motoboy")
	assert.Contains(t, prompt, "Assistente de classificação.")
	assert.Contains(t, prompt, "Logistica")
	assert.Contains(t, prompt, "Corrida de motoboy")
	assert.Contains(t, prompt, "Rotineira")
	assert.Contains(t, prompt, "Responda APENAS com JSON válido")
	assert.Contains(t, prompt, "Preciso de um motoboy")
}

func TestPromptConfig_OptionLookups(t *testing.T) {
	dir := writeConfigDir(t, minimalMainYAML, minimalPromptYAML)
	cfg, err := Initialize(dir)
	require.NoError(t, err)

	id, ok := cfg.Prompt.CategoryOptionID("Logistica")
	assert.True(t, ok)
	assert.Equal(t, "cat-1", id)

	id, ok = cfg.Prompt.SubcategoryOptionID("Logistica", "Corrida de motoboy")
	assert.True(t, ok)
	assert.Equal(t, "sub-1", id)

	_, ok = cfg.Prompt.SubcategoryOptionID("Logistica", "Inexistente")
	assert.False(t, ok)

	id, ok = cfg.Prompt.StatusOptionID("Executar")
	assert.True(t, ok)
	assert.Equal(t, "status-1", id)
}
