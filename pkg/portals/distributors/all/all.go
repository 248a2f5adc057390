// Package all registers every production distributor adapter. Importing it
// for side effects fixes the registration order and therefore the order of
// the supported-distributor listing.
package all

import (
	_ "github.com/enerluz/portalex/pkg/portals/distributors/edistribucion"
	_ "github.com/enerluz/portalex/pkg/portals/distributors/ide"
	_ "github.com/enerluz/portalex/pkg/portals/distributors/ufd"
)
