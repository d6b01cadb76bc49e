package sqlinline

const QInsertDonation = `--sql a1ef0d47-31c4-4a98-8bf4-f6c2da9637cd
insert into donations(fundraiser_id, donor, amount, ts, created_at)
values ($1::uuid, $2::text, $3::numeric, $4::bigint, now());
`

const QCountDonorDonations = `--sql 8d5675bd-64bc-4f8c-b98c-b617cc1093df
select count(*)
from donations
where fundraiser_id = $1::uuid and donor = $2::text;
`

// QListDonorDonations pages a donor's history by insertion id, not timestamp.
const QListDonorDonations = `--sql d1ce1d24-d3a8-4aff-90b8-e5e66d6faa68
select amount::text, ts
from donations
where fundraiser_id = $1::uuid and donor = $2::text
order by id asc
offset $3::int
limit $4::int;
`
