package mysql

// -----------------------------------------------------------------------------
// LISTINGS
// -----------------------------------------------------------------------------

const listingColumns = `
  l.id, l.owner_id, l.slug, l.title, l.description, l.kind, l.status,
  l.price_minor, l.currency, l.city, l.country, l.lat, l.lon, l.location_precision,
  l.bedrooms, l.bathrooms, l.photos, l.cover_image, l.featured_until, l.review_note,
  l.created_at, l.updated_at`

const insertListingSQL = `
INSERT INTO listings
  (id, owner_id, slug, title, description, kind, status, price_minor, currency, city, country,
   lat, lon, location_precision, bedrooms, bathrooms, photos, cover_image, created_at, updated_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// slug, owner and status are not editable through this statement.
const updateListingSQL = `
UPDATE listings SET
  title              = ?,
  description        = ?,
  kind               = ?,
  price_minor        = ?,
  currency           = ?,
  city               = ?,
  country            = ?,
  lat                = ?,
  lon                = ?,
  location_precision = ?,
  bedrooms           = ?,
  bathrooms          = ?,
  photos             = ?,
  cover_image        = ?,
  updated_at         = CURRENT_TIMESTAMP(6)
WHERE id = ?
`

// Rows pulled from the hosted platform overwrite the local copy wholesale.
const upsertSyncedListingSQL = `
INSERT INTO listings
  (id, owner_id, slug, title, description, kind, status, price_minor, currency, city, country,
   lat, lon, location_precision, bedrooms, bathrooms, photos, cover_image, featured_until,
   created_at, updated_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  owner_id           = VALUES(owner_id),
  slug               = VALUES(slug),
  title              = VALUES(title),
  description        = VALUES(description),
  kind               = VALUES(kind),
  status             = VALUES(status),
  price_minor        = VALUES(price_minor),
  currency           = VALUES(currency),
  city               = VALUES(city),
  country            = VALUES(country),
  lat                = VALUES(lat),
  lon                = VALUES(lon),
  location_precision = VALUES(location_precision),
  bedrooms           = VALUES(bedrooms),
  bathrooms          = VALUES(bathrooms),
  photos             = VALUES(photos),
  cover_image        = VALUES(cover_image),
  featured_until     = COALESCE(VALUES(featured_until), listings.featured_until),
  updated_at         = VALUES(updated_at)
`

const getListingSQL = `SELECT` + listingColumns + `
FROM listings l
WHERE l.id = ?
`

const getListingBySlugSQL = `SELECT` + listingColumns + `
FROM listings l
WHERE l.slug = ?
`

const slugExistsSQL = `SELECT EXISTS(SELECT 1 FROM listings WHERE slug = ?)`

const listingExistsSQL = `SELECT EXISTS(SELECT 1 FROM listings WHERE id = ?)`

const countByStatusSQL = `
SELECT status, COUNT(*)
FROM listings
WHERE owner_id = ?
GROUP BY status
`

const listFeaturedSQL = `SELECT` + listingColumns + `
FROM listings l
WHERE l.featured_until IS NOT NULL
`

// oldest first, so the review queue is FIFO
const listByStatusSQL = `SELECT` + listingColumns + `
FROM listings l
WHERE l.status = ?
ORDER BY l.updated_at ASC, l.id ASC
LIMIT ?
`

// -----------------------------------------------------------------------------
// SHORTLETS & BOOKINGS
// -----------------------------------------------------------------------------

const getShortletSQL = `
SELECT listing_id, timezone, nightly_minor, cleaning_fee_minor, min_nights, max_nights,
       slot_minutes, rules, exceptions
FROM shortlet_settings
WHERE listing_id = ?
`

// Locks the listing row so concurrent bookings for it serialize.
const lockListingSQL = `SELECT status FROM listings WHERE id = ? FOR UPDATE`

const overlapCountSQL = `
SELECT COUNT(*)
FROM bookings
WHERE listing_id = ?
  AND status IN ('pending', 'confirmed')
  AND check_in < ?
  AND check_out > ?
`

const insertBookingSQL = `
INSERT INTO bookings
  (id, listing_id, guest_id, check_in, check_out, nights, total_minor, currency, status, created_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const getBookingSQL = `
SELECT id, listing_id, guest_id, check_in, check_out, nights, total_minor, currency, status, created_at
FROM bookings
WHERE id = ?
`

const bookedRangesSQL = `
SELECT check_in, check_out
FROM bookings
WHERE listing_id = ?
  AND status IN ('pending', 'confirmed')
  AND check_in < ?
  AND check_out > ?
ORDER BY check_in
`

const bookingExistsSQL = `SELECT EXISTS(SELECT 1 FROM bookings WHERE id = ?)`

// -----------------------------------------------------------------------------
// BILLING
// -----------------------------------------------------------------------------

const getBillingAccountSQL = `
SELECT owner_id, plan, credits, renews_at, updated_at
FROM billing_accounts
WHERE owner_id = ?
`

const lockBillingAccountSQL = `SELECT credits FROM billing_accounts WHERE owner_id = ? FOR UPDATE`

const findLedgerByKeySQL = `
SELECT id, owner_id, delta, reason, idempotency_key, balance_after, created_at
FROM credit_ledger
WHERE owner_id = ? AND idempotency_key = ?
FOR UPDATE
`

const lockListingForFeatureSQL = `SELECT owner_id, status, featured_until FROM listings WHERE id = ? FOR UPDATE`

const debitCreditSQL = `
UPDATE billing_accounts
SET credits = credits - 1, updated_at = CURRENT_TIMESTAMP(6)
WHERE owner_id = ?
`

const insertLedgerSQL = `
INSERT INTO credit_ledger (id, owner_id, delta, reason, idempotency_key, balance_after, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

const setFeaturedUntilSQL = `UPDATE listings SET featured_until = ? WHERE id = ?`

const featuredUntilSQL = `SELECT featured_until FROM listings WHERE id = ?`

// -----------------------------------------------------------------------------
// REFERRALS
// -----------------------------------------------------------------------------

const getReferralAccountSQL = `
SELECT
  a.user_id,
  a.created_at,
  a.payout_verified,
  COALESCE((SELECT SUM(r.amount_minor) FROM referral_rewards r WHERE r.referrer_id = a.user_id), 0),
  COALESCE((SELECT SUM(c.amount_minor) FROM referral_cashouts c
            WHERE c.user_id = a.user_id AND c.status = 'paid'), 0),
  COALESCE((SELECT SUM(c.amount_minor) FROM referral_cashouts c
            WHERE c.user_id = a.user_id AND c.status IN ('pending_review', 'approved', 'held')), 0),
  (SELECT COUNT(*) FROM referral_cashouts c WHERE c.user_id = a.user_id AND c.created_at >= ?),
  (SELECT COUNT(*) FROM referral_rewards r
   WHERE r.referrer_id = a.user_id
     AND r.referee_device IS NOT NULL
     AND r.referee_device = a.device_fingerprint)
FROM referral_accounts a
WHERE a.user_id = ?
`

const lockReferralAccountSQL = `SELECT user_id FROM referral_accounts WHERE user_id = ? FOR UPDATE`

// availableBalanceSQL is earned minus paid minus in-flight cashouts.
const availableBalanceSQL = `
SELECT
  COALESCE((SELECT SUM(r.amount_minor) FROM referral_rewards r WHERE r.referrer_id = ?), 0)
  - COALESCE((SELECT SUM(c.amount_minor) FROM referral_cashouts c
              WHERE c.user_id = ? AND c.status IN ('paid', 'pending_review', 'approved', 'held')), 0)
`

const insertCashoutSQL = `
INSERT INTO referral_cashouts (id, user_id, amount_minor, currency, status, severity, signals, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

const listCashoutsSQL = `
SELECT id, user_id, amount_minor, currency, status, severity, signals, created_at
FROM referral_cashouts
WHERE status = ?
ORDER BY created_at ASC
LIMIT ?
`

// -----------------------------------------------------------------------------
// LEGAL
// -----------------------------------------------------------------------------

const currentDocumentsSQL = `
SELECT d.slug, d.version, d.title, d.published_at
FROM legal_documents d
WHERE d.version = (SELECT MAX(v.version) FROM legal_documents v WHERE v.slug = d.slug)
ORDER BY d.slug
`

const acceptedVersionsSQL = `
SELECT document, MAX(version)
FROM legal_acceptances
WHERE user_id = ?
GROUP BY document
`

// Re-accepting the same version keeps the original timestamp.
const acceptDocumentSQL = `
INSERT INTO legal_acceptances (user_id, document, version, accepted_at)
VALUES (?, ?, ?, ?)
ON DUPLICATE KEY UPDATE accepted_at = accepted_at
`

// -----------------------------------------------------------------------------
// SYNC
// -----------------------------------------------------------------------------

const insertSyncMissSQL = `
INSERT INTO sync_misses (listing_id, reason)
VALUES (?, ?)
ON DUPLICATE KEY UPDATE reason = VALUES(reason), seen_at = CURRENT_TIMESTAMP(6)
`

const getWatermarkSQL = `SELECT watermark FROM sync_state WHERE name = ?`

const setWatermarkSQL = `
INSERT INTO sync_state (name, watermark)
VALUES (?, ?)
ON DUPLICATE KEY UPDATE watermark = GREATEST(watermark, VALUES(watermark))
`
