package tracking

// Static pages for the tracking surface. They carry no token, campaign,
// or recipient detail so a response never reveals token validity.

const pageSimulationReveal = `<!DOCTYPE html><html><head><title>Security Awareness</title></head>
<body style="font-family:Arial,sans-serif;text-align:center;padding:50px;">
	<h1>This was a phishing simulation</h1>
	<p>The email you interacted with was part of your organization's security awareness program.</p>
	<p>No data you entered was stored. Real attackers would not be so kind.</p>
	<p>If you are unsure whether an email is genuine, report it to your security team.</p>
</body></html>`

const pageReportThanks = `<!DOCTYPE html><html><head><title>Thank You</title></head>
<body style="font-family:Arial,sans-serif;text-align:center;padding:50px;">
	<h1>Thank you for reporting</h1>
	<p>Reporting suspicious emails is exactly the right response.</p>
	<p>Your security team has been notified.</p>
</body></html>`

const pageNotAvailable = `<!DOCTYPE html><html><head><title>Page Not Available</title></head>
<body style="font-family:Arial,sans-serif;text-align:center;padding:50px;">
	<h1>Page Not Available</h1>
	<p>The page you requested is no longer available.</p>
</body></html>`
