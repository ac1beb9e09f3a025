package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	appFrag "github.com/turtacn/molfrag/internal/application/fragmentation"
	"github.com/turtacn/molfrag/internal/config"
	domainFrag "github.com/turtacn/molfrag/internal/domain/fragmentation"
	"github.com/turtacn/molfrag/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molfrag/pkg/errors"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Fragment(ctx context.Context, req *appFrag.FragmentRequest) (*appFrag.FragmentResponse, error) {
	args := m.Called(ctx, req)
	if resp := args.Get(0); resp != nil {
		return resp.(*appFrag.FragmentResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockService) Rules() []appFrag.RuleInfo {
	args := m.Called()
	return args.Get(0).([]appFrag.RuleInfo)
}

func realService() appFrag.Service {
	return appFrag.NewService(
		domainFrag.NewFragmenter(logging.NewNopLogger()),
		config.NewDefaultConfig().Fragmentation,
		logging.NewNopLogger(),
	)
}

func execute(t *testing.T, svc appFrag.Service, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	cmd := NewRootCommand(svc)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestFragment_TextOutput(t *testing.T) {
	out, err := execute(t, realService(), "fragment", "--rules", "cod", "NCC(O)CC")
	require.NoError(t, err)

	lines := strings.Split(out, "\n")
	require.GreaterOrEqual(t, len(lines), 8)
	assert.Equal(t, "", lines[0])
	assert.Equal(t, "molecule: CCC(CN)O", lines[1])
	assert.Equal(t, "", lines[2])

	fragLine := regexp.MustCompile(`^\d+\.\d{1,5} \S+$`)
	assert.Regexp(t, fragLine, lines[3])
	assert.True(t, strings.HasSuffix(lines[3], " C[NH3+]"))
	assert.True(t, strings.HasSuffix(lines[4], " CCC=O"))
	assert.Equal(t, "", lines[5])
	assert.Regexp(t, fragLine, lines[6])
	assert.Regexp(t, fragLine, lines[7])
}

func TestFragment_MultipleMolecules(t *testing.T) {
	out, err := execute(t, realService(), "fragment", "-r", "cod", "NCC(O)CC", "CCO")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "molecule: "))
	assert.Contains(t, out, "molecule: CCO")
}

func TestFragment_JSONOutput(t *testing.T) {
	out, err := execute(t, realService(), "-o", "json", "fragment", "--rules", "cod", "NCC(O)CC")
	require.NoError(t, err)

	var resp appFrag.FragmentResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "CCC(CN)O", resp.Input.SMILES)
	assert.Equal(t, []string{"cod"}, resp.Rules)
	assert.Len(t, resp.Sets, 2)
}

func TestFragment_JSONOutputMany(t *testing.T) {
	out, err := execute(t, realService(), "-o", "json", "fragment", "-r", "cod", "NCC(O)CC", "CCO")
	require.NoError(t, err)

	var resps []appFrag.FragmentResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resps))
	assert.Len(t, resps, 2)
}

func TestFragment_TableOutput(t *testing.T) {
	out, err := execute(t, realService(), "-o", "table", "fragment", "-r", "cod", "NCC(O)CC")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 6)
	assert.True(t, strings.HasPrefix(lines[0], "MOLECULE"))
	assert.Contains(t, lines[2], "C[NH3+]")
	assert.Contains(t, lines[2], "cod")
}

func TestFragment_PassesFlags(t *testing.T) {
	svc := new(MockService)
	svc.On("Fragment", mock.Anything, mock.MatchedBy(func(req *appFrag.FragmentRequest) bool {
		return req.SMILES == "CCO" &&
			assert.ObjectsAreEqual([]string{"oxh", "oxe"}, req.Rules) &&
			req.ErrorPolicy == "ignore" &&
			req.UniqueOnly && req.Parallel &&
			req.PH != nil && *req.PH == 2.5 &&
			req.Source == "cli"
	})).Return(&appFrag.FragmentResponse{Input: appFrag.MoleculeView{SMILES: "CCO"}}, nil)

	out, err := execute(t, svc, "fragment", "--rules", "oxh,oxe", "--error-policy", "ignore",
		"--unique", "--parallel", "--ph", "2.5", "CCO")
	require.NoError(t, err)
	assert.Equal(t, "\nmolecule: CCO\n", out)
	svc.AssertExpectations(t)
}

func TestFragment_PHOnlyWhenSet(t *testing.T) {
	svc := new(MockService)
	svc.On("Fragment", mock.Anything, mock.MatchedBy(func(req *appFrag.FragmentRequest) bool {
		return req.PH == nil
	})).Return(&appFrag.FragmentResponse{}, nil)

	_, err := execute(t, svc, "fragment", "CCO")
	require.NoError(t, err)
	svc.AssertExpectations(t)
}

func TestFragment_ServiceError(t *testing.T) {
	svc := new(MockService)
	svc.On("Fragment", mock.Anything, mock.Anything).
		Return(nil, errors.New(errors.ErrCodeMoleculeInvalidSMILES, "bad smiles"))

	_, err := execute(t, svc, "fragment", "C1CC")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeMoleculeInvalidSMILES, errors.GetCode(err))
	assert.Contains(t, err.Error(), `"C1CC"`)
}

func TestFragment_RequiresArgs(t *testing.T) {
	_, err := execute(t, new(MockService), "fragment")
	assert.Error(t, err)
}

func TestRoot_InvalidOutputFormat(t *testing.T) {
	_, err := execute(t, new(MockService), "-o", "xml", "rules")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeValidation, errors.GetCode(err))
}

func TestRules_Text(t *testing.T) {
	out, err := execute(t, realService(), "rules")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 6)
	assert.True(t, strings.HasPrefix(lines[0], "cod "))
	assert.True(t, strings.HasPrefix(lines[5], "oxhpd "))
}

func TestRules_JSON(t *testing.T) {
	out, err := execute(t, realService(), "-o", "json", "rules")
	require.NoError(t, err)
	var rules []appFrag.RuleInfo
	require.NoError(t, json.Unmarshal([]byte(out), &rules))
	require.Len(t, rules, 6)
	assert.Equal(t, "codoo", rules[1].Name)
	assert.NotEmpty(t, rules[1].Description)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, nil, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "molfrag dev")
	assert.Contains(t, out, "commit: unknown")
}

func TestGetCLIContext_Missing(t *testing.T) {
	cmd := &cobra.Command{}
	_, err := GetCLIContext(cmd)
	assert.Error(t, err)

	cmd.SetContext(context.Background())
	_, err = GetCLIContext(cmd)
	assert.Error(t, err)
}

func TestFormatTable(t *testing.T) {
	got := FormatTable([]string{"A", "LONG"}, [][]string{{"xyz", "1"}, {"q"}})
	assert.Equal(t, "A    LONG\n---  ----\nxyz  1   \nq        \n", got)
	assert.Empty(t, FormatTable(nil, nil))
}

func TestFormatMass(t *testing.T) {
	assert.Equal(t, "32.04948", formatMass(32.049476))
	assert.Equal(t, "18.0", formatMass(18.0))
	assert.Equal(t, "17.5", formatMass(17.500001))
}
