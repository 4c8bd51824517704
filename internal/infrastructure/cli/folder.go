package cli

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/felixgeelhaar/sdra/pkg/domain"
)

// stdinIsTerminal is replaced in tests.
var stdinIsTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// folderArg returns the folder argument, asking for one when stdin is a
// terminal and none was given. Relative paths resolve against the workspace.
func folderArg(cmd *cobra.Command, args []string) (string, error) {
	var folder string
	switch {
	case len(args) > 0:
		folder = args[0]
	case stdinIsTerminal():
		fmt.Fprint(cmd.OutOrStdout(), "Design folder: ")
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return "", &domain.ValidationError{Field: "folder", Reason: "no folder entered"}
		}
		folder = strings.TrimSpace(line)
	}

	if folder == "" {
		return "", &domain.ValidationError{Field: "folder", Reason: "a folder of design documents is required"}
	}
	if filepath.IsAbs(folder) || workspaceRoot == "" {
		return folder, nil
	}
	return filepath.Join(workspaceRoot, folder), nil
}
