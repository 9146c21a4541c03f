// Package imports links every tool package into the binary so that their
// init functions register them.
package imports

import (
	_ "github.com/sammcj/pdf-toolbox/internal/tools/compress"
	_ "github.com/sammcj/pdf-toolbox/internal/tools/merge"
	_ "github.com/sammcj/pdf-toolbox/internal/tools/ocrtool"
	_ "github.com/sammcj/pdf-toolbox/internal/tools/organize"
	_ "github.com/sammcj/pdf-toolbox/internal/tools/pdfinfo"
	_ "github.com/sammcj/pdf-toolbox/internal/tools/pdftoword"
	_ "github.com/sammcj/pdf-toolbox/internal/tools/rotate"
	_ "github.com/sammcj/pdf-toolbox/internal/tools/split"
	_ "github.com/sammcj/pdf-toolbox/internal/tools/utilities/toolhelp"
)
