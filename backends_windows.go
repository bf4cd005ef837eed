package glkit

import _ "github.com/1broseidon/glkit/internal/backend/wgl"
