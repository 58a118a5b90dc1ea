package cli

import "github.com/absmach/flcoord/pkg/sdk"

var (
	DefTLSVerification = false
	DefCoordinatorURL  = "http://localhost:8080"
)

var flsdk sdk.SDK

func SetSDK(s sdk.SDK) {
	flsdk = s
}
