package cmd

const bannerText = `
   __
  / _| ___ _ __ _ __ _   _
 | |_ / _ \ '__| '__| | | |
 |  _|  __/ |  | |  | |_| |
 |_|  \___|_|  |_|   \__, |
                     |___/

     channel bridge gateway
`

// Banner returns the CLI banner string.
func Banner() string {
	return bannerText
}
